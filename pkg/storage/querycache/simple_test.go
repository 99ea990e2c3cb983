package querycache

import (
	"context"
	"testing"
	"time"
)

func TestSimpleGetMissThenHit(t *testing.T) {
	c := NewSimple("test", 10, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected a miss before Set")
	}
	c.SetWithDomain(ctx, "k1", "web-api", "value-1")
	v, ok := c.Get(ctx, "k1")
	if !ok || v != "value-1" {
		t.Fatalf("expected a hit returning value-1, got %v, %v", v, ok)
	}
}

func TestSimpleExpiresByTTL(t *testing.T) {
	c := NewSimple("test", 10, time.Millisecond)
	ctx := context.Background()
	c.SetWithDomain(ctx, "k1", "", "value-1")

	time.Sleep(5 * time.Millisecond)
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Fatal("expected the entry to have expired")
	}
}

func TestSimpleInvalidateDomainIsLazyAndLocal(t *testing.T) {
	c := NewSimple("test", 10, time.Minute)
	ctx := context.Background()
	c.SetWithDomain(ctx, "a", "domain-a", "va")
	c.SetWithDomain(ctx, "b", "domain-b", "vb")

	c.InvalidateDomain("domain-a")

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("expected domain-a's key to miss after invalidation")
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Fatal("expected domain-b's key to be unaffected by domain-a's invalidation")
	}
}

func TestSimpleEvictsLRUOnOverflow(t *testing.T) {
	c := NewSimple("test", 2, time.Minute)
	ctx := context.Background()
	c.SetWithDomain(ctx, "a", "", "va")
	c.SetWithDomain(ctx, "b", "", "vb")
	c.SetWithDomain(ctx, "c", "", "vc")

	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("expected a to have been evicted as least-recently-used")
	}
}

func TestSimpleHashShapeIsStableAndSensitiveToFields(t *testing.T) {
	s1 := QueryShape{QueryText: "find errors", Domain: "api", Limit: 10}
	s2 := QueryShape{QueryText: "find errors", Domain: "api", Limit: 10}
	s3 := QueryShape{QueryText: "find errors", Domain: "api", Limit: 20}

	if HashShape(s1) != HashShape(s2) {
		t.Fatal("expected identical shapes to hash identically")
	}
	if HashShape(s1) == HashShape(s3) {
		t.Fatal("expected a different limit to change the hash")
	}
}
