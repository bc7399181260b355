package ai

import "testing"

type testPayload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestUnmarshalFlexible(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    testPayload
		wantErr bool
	}{
		{
			name:  "standard json",
			input: `{"name": "alpha", "count": 3}`,
			want:  testPayload{Name: "alpha", Count: 3},
		},
		{
			name:  "double encoded",
			input: `"{\"name\": \"beta\", \"count\": 7}"`,
			want:  testPayload{Name: "beta", Count: 7},
		},
		{
			name:  "unquoted keys repaired",
			input: `{name: "gamma", count: 1}`,
			want:  testPayload{Name: "gamma", Count: 1},
		},
		{
			name:  "duplicate leading brace",
			input: `{{"name": "delta", "count": 2}`,
			want:  testPayload{Name: "delta", Count: 2},
		},
		{
			name:  "surrounding whitespace",
			input: "  \n {\"name\": \"eps\", \"count\": 5} \n",
			want:  testPayload{Name: "eps", Count: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got testPayload
			err := UnmarshalFlexible(tt.input, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalFlexible error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("UnmarshalFlexible = %+v, want %+v", got, tt.want)
			}
		})
	}
}
