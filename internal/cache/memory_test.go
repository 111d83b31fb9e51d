package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(time.Minute)
	defer mc.Close()

	if _, found, err := mc.Get(ctx, "missing"); found || err != nil {
		t.Fatalf("Get(missing) = found %v, err %v", found, err)
	}

	if err := mc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, found, err := mc.Get(ctx, "k")
	if err != nil || !found || string(got) != "v" {
		t.Fatalf("Get(k) = %q, %v, %v", got, found, err)
	}

	mc.Delete(ctx, "k")
	if _, found, _ := mc.Get(ctx, "k"); found {
		t.Error("deleted key still present")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(time.Minute)
	defer mc.Close()

	mc.Set(ctx, "short", []byte("x"), 10*time.Millisecond)
	mc.Set(ctx, "forever", []byte("y"), 0)
	time.Sleep(30 * time.Millisecond)

	if _, found, _ := mc.Get(ctx, "short"); found {
		t.Error("expired entry returned")
	}
	if _, found, _ := mc.Get(ctx, "forever"); !found {
		t.Error("entry without TTL should not expire")
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(time.Minute)
	defer mc.Close()

	type pds struct {
		Endpoint string `json:"endpoint"`
	}

	if err := SetJSON(ctx, mc, "did:plc:abc", pds{Endpoint: "https://pds.example.com"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got pds
	found, err := GetJSON(ctx, mc, "did:plc:abc", &got)
	if err != nil || !found || got.Endpoint != "https://pds.example.com" {
		t.Errorf("GetJSON = %+v, %v, %v", got, found, err)
	}

	mc.Set(ctx, "corrupt", []byte("{not json"), time.Minute)
	found, err = GetJSON(ctx, mc, "corrupt", &got)
	if found || err != nil {
		t.Errorf("corrupt entry: found %v, err %v", found, err)
	}
}

func TestNewBackend(t *testing.T) {
	b, err := New(BackendConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := b.(*MemoryCache); !ok {
		t.Errorf("default backend is %T", b)
	}
	b.Close()

	for _, cfg := range []BackendConfig{
		{Kind: "redis"},
		{Kind: "memcached"},
		{Kind: "etcd"},
	} {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail", cfg)
		}
	}
}
