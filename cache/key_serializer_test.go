package cache

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
)

func TestDefaultKeySerializer_SerializeKey(t *testing.T) {
	s := NewDefaultKeySerializer()
	id := uuid.MustParse("6f1c2a3b-0000-4000-8000-000000000001")
	name := "Editors"

	tests := []struct {
		name string
		args []any
		want string
	}{
		{"no args", nil, "member"},
		{"int", []any{42}, "member::42"},
		{"string and bool", []any{"alice", true}, "member::alice::true"},
		{"uuid", []any{id}, "member::6f1c2a3b-0000-4000-8000-000000000001"},
		{"int slice", []any{[]int{3, 1, 2}}, "member::[3,1,2]"},
		{"nil slice", []any{[]int(nil)}, "member::[]"},
		{"pointer", []any{&name}, "member::Editors"},
		{"nil", []any{nil}, "member::nil"},
		{"struct", []any{struct{ A int }{A: 1}}, `member::{"A":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SerializeKey("member", tt.args...); got != tt.want {
				t.Errorf("SerializeKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	s := NewDefaultKeySerializer()
	a := s.SerializeKey("GetAll", []int{1, 2, 3})
	b := s.SerializeKey("GetAll", []int{1, 2, 3})
	if a != b {
		t.Errorf("expected identical keys, got %q and %q", a, b)
	}
}

func TestKeyHelpers(t *testing.T) {
	if got := EntityKey("member", 12); got != "uRepo_member_12" {
		t.Errorf("EntityKey() = %q", got)
	}
	if got := PreValueKey(7, 31); got != "UmbracoPreVal7-31" {
		t.Errorf("PreValueKey() = %q", got)
	}

	re := PreValuePattern(7)
	for key, want := range map[string]bool{
		"UmbracoPreVal7-31":  true,
		"UmbracoPreVal71-31": false,
		"UmbracoPreVal7-":    false,
	} {
		if re.MatchString(key) != want {
			t.Errorf("PreValuePattern(7).MatchString(%q) = %v, want %v", key, !want, want)
		}
	}

	type group struct{}
	if got := TypeFullName(&group{}); !regexp.MustCompile(`cache\.group$`).MatchString(got) {
		t.Errorf("TypeFullName() = %q", got)
	}
	if got := TypeNameKey("pkg.MemberGroup", "Editors"); got != "pkg.MemberGroup.Editors" {
		t.Errorf("TypeNameKey() = %q", got)
	}
}
