package clipboard

import "testing"

func TestSnapshotText(t *testing.T) {
	tests := []struct {
		name   string
		snap   Snapshot
		want   string
		wantOK bool
	}{
		{"empty", nil, "", false},
		{"image only", Snapshot{{{Type: "public.png", Data: []byte{0x89}}}}, "", false},
		{"second type", Snapshot{{{Type: "public.html", Data: []byte("<b>x</b>")}, {Type: TypeText, Data: []byte("x")}}}, "x", true},
		{"second item", Snapshot{{{Type: "public.png"}}, {{Type: TypeText, Data: []byte("y")}}}, "y", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.snap.Text()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Text() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSnapshotEqual(t *testing.T) {
	a := Snapshot{{{Type: TypeText, Data: []byte("a")}, {Type: "public.rtf", Data: []byte{1, 2}}}}
	tests := []struct {
		name string
		b    Snapshot
		want bool
	}{
		{"same", Snapshot{{{Type: TypeText, Data: []byte("a")}, {Type: "public.rtf", Data: []byte{1, 2}}}}, true},
		{"reordered types", Snapshot{{{Type: "public.rtf", Data: []byte{1, 2}}, {Type: TypeText, Data: []byte("a")}}}, false},
		{"different bytes", Snapshot{{{Type: TypeText, Data: []byte("a")}, {Type: "public.rtf", Data: []byte{1, 3}}}}, false},
		{"extra item", append(Snapshot{}, a[0], Item{}), false},
		{"empty", Snapshot{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}
