package mapping_test

import (
	"testing"

	"github.com/goliatone/go-sqlmapper/cache"
	"github.com/goliatone/go-sqlmapper/mapping"
	"github.com/goliatone/go-sqlmapper/pkg/testsupport"
)

type statementFixture struct {
	ID         string `json:"id"`
	SQL        string `json:"sql"`
	UseCache   bool   `json:"useCache"`
	FlushCache bool   `json:"flushCache"`
}

func TestConfiguration_RegistersFixtureStatements(t *testing.T) {
	var fixtures []statementFixture
	testsupport.LoadFixtureJSON(t, "testdata/statements.json", &fixtures)

	cfg := mapping.NewConfiguration("dev")
	for _, fx := range fixtures {
		ms, err := mapping.NewStatement(fx.ID, mapping.NewStaticSQLSource(fx.SQL)).
			UseCache(fx.UseCache).
			FlushCache(fx.FlushCache).
			Build()
		if err != nil {
			t.Fatalf("building %s: %v", fx.ID, err)
		}
		if err := cfg.AddStatement(ms); err != nil {
			t.Fatalf("registering %s: %v", fx.ID, err)
		}
	}

	ms, err := cfg.Statement("app.selectUser")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	bound, err := ms.BoundSQL(nil)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if bound.SQL != "SELECT id, name FROM users WHERE id = ?" {
		t.Errorf("unexpected SQL: %s", bound.SQL)
	}
}

func TestConfiguration_DuplicateStatementIsAnError(t *testing.T) {
	cfg := mapping.NewConfiguration("dev")
	ms, err := mapping.NewStatement("app.q", mapping.NewStaticSQLSource("SELECT 1")).Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddStatement(ms); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddStatement(ms); err == nil {
		t.Errorf("duplicate registration should fail")
	}
}

func TestConfiguration_UnknownStatementIsAnError(t *testing.T) {
	cfg := mapping.NewConfiguration("dev")
	if _, err := cfg.Statement("missing"); err == nil {
		t.Errorf("unknown lookup should fail")
	}
}

func TestConfiguration_CacheRegistry(t *testing.T) {
	cfg := mapping.NewConfiguration("dev")
	c, err := cache.NewBuilder("app.Users").Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddCache(c); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddCache(c); err == nil {
		t.Errorf("duplicate cache registration should fail")
	}
	if got := cfg.Cache("app.Users"); got == nil {
		t.Errorf("registered cache should resolve")
	}
	if got := cfg.Cache("missing"); got != nil {
		t.Errorf("unknown cache should be nil, got %v", got)
	}
	if n := len(cfg.Caches()); n != 1 {
		t.Errorf("caches = %d, want 1", n)
	}
}
