package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "endpoint only",
			key:  Key{Endpoint: "/rows"},
			want: "rowsite:rows",
		},
		{
			name: "rows query sorted by parameter name",
			key: Key{
				Endpoint: "/rows",
				QueryParams: url.Values{
					"split":   []string{"train"},
					"dataset": []string{"org/name"},
					"offset":  []string{"100"},
					"length":  []string{"100"},
					"config":  []string{"default"},
				},
			},
			want: "rowsite:rows:config=default:dataset=org/name:length=100:offset=100:split=train",
		},
		{
			name: "host included",
			key: Key{
				Host:        "Datasets-Server.huggingface.co",
				Endpoint:    "/rows",
				QueryParams: url.Values{"offset": []string{"0"}},
			},
			want: "rowsite:datasets-server.huggingface.co:rows:offset=0",
		},
		{
			name: "multi-valued parameter sorted",
			key: Key{
				Endpoint:    "/rows/",
				QueryParams: url.Values{"x": []string{"b", "a"}},
			},
			want: "rowsite:rows:x=a,b",
		},
		{
			name: "empty endpoint",
			key:  Key{QueryParams: url.Values{"offset": []string{"0"}}},
			want: "rowsite:offset=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_String_Deterministic(t *testing.T) {
	key := Key{
		Endpoint: "/rows",
		QueryParams: url.Values{
			"dataset": []string{"org/name"},
			"offset":  []string{"0"},
			"length":  []string{"100"},
		},
	}

	first := key.String()
	for i := 0; i < 50; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestKey_String_DistinctOffsets(t *testing.T) {
	a := Key{Endpoint: "/rows", QueryParams: url.Values{"offset": []string{"0"}}}
	b := Key{Endpoint: "/rows", QueryParams: url.Values{"offset": []string{"100"}}}

	if a.String() == b.String() {
		t.Errorf("different offsets produced the same key %q", a.String())
	}
}

func TestKey_String_DistinctHosts(t *testing.T) {
	q := url.Values{"offset": []string{"0"}, "length": []string{"100"}}
	a := Key{Host: "127.0.0.1:8081", Endpoint: "/rows", QueryParams: q}
	b := Key{Host: "127.0.0.1:8082", Endpoint: "/rows", QueryParams: q}

	if a.String() == b.String() {
		t.Errorf("different hosts produced the same key %q", a.String())
	}
}
