package registry

import (
	"errors"
	"reflect"
	"testing"
)

/* ========== 进程级登记表 ========== */

func TestValidate_BuiltinTablesAreUnique(t *testing.T) {
	if err := Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
}

func TestIsScopeID(t *testing.T) {
	for _, id := range []int{ScopeProfile, ScopeEmail, ScopeRoles, ScopeMembership} {
		if !IsScopeID(id) {
			t.Errorf("IsScopeID(%d) = false, want true", id)
		}
	}
	for _, id := range []int{0, -1, 5, 999} {
		if IsScopeID(id) {
			t.Errorf("IsScopeID(%d) = true, want false", id)
		}
	}
}

func TestAllScopes_SortedCopy(t *testing.T) {
	all := AllScopes()
	if len(all) != 4 {
		t.Fatalf("len(AllScopes()) = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("AllScopes() not sorted: %v", all)
		}
	}
	all[0].Name = "mutated"
	if AllScopes()[0].Name != "profile" {
		t.Error("AllScopes() exposes internal slice")
	}
}

func TestRoles(t *testing.T) {
	if RoleName(RoleAdmin) != "admin" {
		t.Errorf("RoleName(admin) = %q", RoleName(RoleAdmin))
	}
	if RoleName(42) != "" {
		t.Errorf("RoleName(42) = %q, want empty", RoleName(42))
	}
	if !IsRoleID(RoleMember) || IsRoleID(0) {
		t.Error("IsRoleID() wrong")
	}
}

/* ========== 唯一性检查 ========== */

func TestNewScopes_DuplicateID(t *testing.T) {
	_, err := NewScopes([]Scope{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}})
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("NewScopes(dup id) error = %v, want ErrDuplicateID", err)
	}
}

func TestNewRoles_DuplicateName(t *testing.T) {
	_, err := NewRoles([]Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "admin"}})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("NewRoles(dup name) error = %v, want ErrDuplicateName", err)
	}
}

/* ========== scope 参数解析 ========== */

func TestParseScopeIDs(t *testing.T) {
	cases := []struct {
		raw  []string
		want []int
	}{
		{[]string{"1 2"}, []int{1, 2}},
		{[]string{"2", "1"}, []int{1, 2}},
		{[]string{"3,1, 3"}, []int{1, 3}},
		{[]string{"1+4"}, []int{1, 4}},
		{[]string{""}, nil},
		{nil, nil},
		{[]string{"99"}, []int{99}},
	}
	for _, c := range cases {
		got, err := ParseScopeIDs(c.raw...)
		if err != nil {
			t.Errorf("ParseScopeIDs(%q) error: %v", c.raw, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("ParseScopeIDs(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestParseScopeIDs_Malformed(t *testing.T) {
	for _, raw := range []string{"profile", "1 two", "1.5"} {
		if _, err := ParseScopeIDs(raw); !errors.Is(err, ErrMalformedID) {
			t.Errorf("ParseScopeIDs(%q) error = %v, want ErrMalformedID", raw, err)
		}
	}
}

func TestFormatScopeIDs(t *testing.T) {
	if got := FormatScopeIDs([]int{1, 2, 4}); got != "1 2 4" {
		t.Errorf("FormatScopeIDs() = %q, want %q", got, "1 2 4")
	}
	if got := FormatScopeIDs(nil); got != "" {
		t.Errorf("FormatScopeIDs(nil) = %q, want empty", got)
	}
}

func TestNormalizeScopeIDs(t *testing.T) {
	if got := NormalizeScopeIDs([]int{3, 1, 3, 2}); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("NormalizeScopeIDs() = %v", got)
	}
}
