/*
 * Package registry 权限范围（Scope）与角色（Role）登记表
 * 功能：进程级只读查找表，启动时构建一次并做唯一性检查
 *       ID 或名称重复时 Validate 返回错误，main 据此拒绝启动
 */
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

/* Scope 权限范围 */
type Scope struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

/* Role 成员角色 */
type Role struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

const (
	ScopeProfile    = 1
	ScopeEmail      = 2
	ScopeRoles      = 3
	ScopeMembership = 4
)

const (
	RoleAdmin  = 1
	RoleBoard  = 2
	RoleMember = 3
	RoleAlumni = 4
)

var scopeTable = []Scope{
	{ID: ScopeProfile, Name: "profile", Description: "Display name and username"},
	{ID: ScopeEmail, Name: "email", Description: "E-mail address"},
	{ID: ScopeRoles, Name: "roles", Description: "Club role"},
	{ID: ScopeMembership, Name: "membership", Description: "Membership status and join date"},
}

var roleTable = []Role{
	{ID: RoleAdmin, Name: "admin", Description: "Administers every OAuth client and member"},
	{ID: RoleBoard, Name: "board", Description: "Club board member"},
	{ID: RoleMember, Name: "member", Description: "Active member"},
	{ID: RoleAlumni, Name: "alumni", Description: "Former member"},
}

var (
	ErrDuplicateID   = errors.New("registry: duplicate id")
	ErrDuplicateName = errors.New("registry: duplicate name")
	ErrMalformedID   = errors.New("registry: scope id is not an integer")
)

/*
 * Table 只读 ID → 条目查找表
 */
type Table[T any] struct {
	byID    map[int]T
	ordered []T
}

/*
 * newTable 构建查找表并检查 ID 与名称唯一
 * @param items - 条目
 * @param key   - 取 (id, name)
 */
func newTable[T any](items []T, key func(T) (int, string)) (*Table[T], error) {
	t := &Table[T]{byID: make(map[int]T, len(items))}
	names := make(map[string]int, len(items))
	for _, it := range items {
		id, name := key(it)
		if _, dup := t.byID[id]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
		if prev, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: %q used by %d and %d", ErrDuplicateName, name, prev, id)
		}
		t.byID[id] = it
		names[name] = id
		t.ordered = append(t.ordered, it)
	}
	sort.Slice(t.ordered, func(i, j int) bool {
		a, _ := key(t.ordered[i])
		b, _ := key(t.ordered[j])
		return a < b
	})
	return t, nil
}

/* Has 判断 ID 是否登记 */
func (t *Table[T]) Has(id int) bool {
	_, ok := t.byID[id]
	return ok
}

/* Get 按 ID 查找 */
func (t *Table[T]) Get(id int) (T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

/* All 按 ID 升序返回全部条目（副本） */
func (t *Table[T]) All() []T {
	return append([]T(nil), t.ordered...)
}

/* NewScopes 由给定条目构建 Scope 表 */
func NewScopes(items []Scope) (*Table[Scope], error) {
	return newTable(items, func(s Scope) (int, string) { return s.ID, s.Name })
}

/* NewRoles 由给定条目构建 Role 表 */
func NewRoles(items []Role) (*Table[Role], error) {
	return newTable(items, func(r Role) (int, string) { return r.ID, r.Name })
}

var (
	buildOnce sync.Once
	scopes    *Table[Scope]
	roles     *Table[Role]
	buildErr  error
)

func build() {
	buildOnce.Do(func() {
		if scopes, buildErr = NewScopes(scopeTable); buildErr != nil {
			buildErr = fmt.Errorf("scope table: %w", buildErr)
			return
		}
		if roles, buildErr = NewRoles(roleTable); buildErr != nil {
			buildErr = fmt.Errorf("role table: %w", buildErr)
		}
	})
}

/*
 * Validate 构建进程级登记表
 * @return error - 表内 ID 或名称重复
 */
func Validate() error {
	build()
	return buildErr
}

/* Scopes 进程级 Scope 表，登记表非法时 panic */
func Scopes() *Table[Scope] {
	build()
	if buildErr != nil {
		panic(buildErr)
	}
	return scopes
}

/* Roles 进程级 Role 表，登记表非法时 panic */
func Roles() *Table[Role] {
	build()
	if buildErr != nil {
		panic(buildErr)
	}
	return roles
}

/* IsScopeID 判断是否为登记的 Scope ID */
func IsScopeID(id int) bool { return Scopes().Has(id) }

/* AllScopes 全部 Scope */
func AllScopes() []Scope { return Scopes().All() }

/* IsRoleID 判断是否为登记的 Role ID */
func IsRoleID(id int) bool { return Roles().Has(id) }

/* RoleName 角色名，未登记返回空串 */
func RoleName(id int) string {
	r, _ := Roles().Get(id)
	return r.Name
}

/*
 * ParseScopeIDs 解析请求中的 scope 参数
 * 支持空格 / 逗号分隔（"1 2"、"1,2"）与重复参数（scope=1&scope=2）
 * 结果去重并升序；非整数返回 ErrMalformedID；是否登记由调用方检查
 * @param raw - 原始参数值
 */
func ParseScopeIDs(raw ...string) ([]int, error) {
	seen := make(map[int]struct{})
	var ids []int
	for _, r := range raw {
		for _, field := range strings.FieldsFunc(r, func(c rune) bool {
			return c == ' ' || c == ',' || c == '\t' || c == '+'
		}) {
			id, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrMalformedID, field)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

/* NormalizeScopeIDs 去重并升序 */
func NormalizeScopeIDs(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

/* FormatScopeIDs 以空格连接，用于 token 响应的 scope 字段 */
func FormatScopeIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, " ")
}
