package settings

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/robalobadob/letterpop/assets"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want AccessibilitySettings
	}{
		{"empty", ``, Defaults()},
		{"garbage", `{not json`, Defaults()},
		{"array", `[true]`, Defaults()},
		{"partial", `{"highContrast":true}`, AccessibilitySettings{HighContrast: true, VoiceEnabled: true}},
		{"voice off", `{"voiceEnabled":false,"gestureEnabled":true}`, AccessibilitySettings{GestureEnabled: true}},
		{"wrong type keeps default", `{"voiceEnabled":"no","largeText":1}`, Defaults()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse([]byte(tt.raw)); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPatch(t *testing.T) {
	cur := Defaults()
	got, err := Patch(cur, []byte(`{"reducedMotion":true,"voiceEnabled":false,"unknown":7}`))
	if err != nil {
		t.Fatal(err)
	}
	want := AccessibilitySettings{ReducedMotion: true}
	if got != want {
		t.Errorf("Patch = %+v, want %+v", got, want)
	}

	if _, err := Patch(cur, []byte(`{"largeText":"yes"}`)); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("non-boolean patch err = %v", err)
	}
	if _, err := Patch(cur, []byte(`nope`)); !errors.Is(err, ErrInvalidPatch) {
		t.Errorf("invalid JSON patch err = %v", err)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	ddl, err := assets.FS.ReadFile("sql/001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(string(ddl)); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestStores(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLStore(openTestDB(t)),
	}
	ctx := context.Background()
	for name, st := range stores {
		t.Run(name, func(t *testing.T) {
			got, err := st.Load(ctx, "anon-1")
			if err != nil || got != Defaults() {
				t.Fatalf("Load missing = %+v, %v", got, err)
			}

			want := AccessibilitySettings{LargeText: true, GestureEnabled: true}
			if err := st.Save(ctx, "anon-1", want); err != nil {
				t.Fatal(err)
			}
			if got, _ := st.Load(ctx, "anon-1"); got != want {
				t.Errorf("Load = %+v, want %+v", got, want)
			}

			want.LargeText = false
			if err := st.Save(ctx, "anon-1", want); err != nil {
				t.Fatal(err)
			}
			if got, _ := st.Load(ctx, "anon-1"); got != want {
				t.Errorf("overwrite: Load = %+v, want %+v", got, want)
			}

			if err := st.Claim(ctx, "anon-1", "user-1"); err != nil {
				t.Fatal(err)
			}
			if got, _ := st.Load(ctx, "user-1"); got != want {
				t.Errorf("claimed = %+v, want %+v", got, want)
			}
			// An account that already has settings keeps them.
			if err := st.Save(ctx, "anon-2", Defaults()); err != nil {
				t.Fatal(err)
			}
			_ = st.Claim(ctx, "anon-2", "user-1")
			if got, _ := st.Load(ctx, "user-1"); got != want {
				t.Errorf("claim overwrote existing settings: %+v", got)
			}
		})
	}
}

func TestSQLStoreUnparseableRecord(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Exec(`INSERT INTO settings (owner_id, key, value, updated_at) VALUES ('o', ?, '{oops', '')`, Key); err != nil {
		t.Fatal(err)
	}
	got, err := NewSQLStore(db).Load(context.Background(), "o")
	if err != nil || got != Defaults() {
		t.Errorf("Load = %+v, %v; want defaults", got, err)
	}
}

func TestMemoryStoreRawRecord(t *testing.T) {
	m := NewMemoryStore()
	m.SaveRaw("o", []byte(`{"highContrast":true,"voiceEnabled":false}`))
	got, _ := m.Load(context.Background(), "o")
	if !got.HighContrast || got.VoiceEnabled {
		t.Errorf("Load = %+v", got)
	}
}
