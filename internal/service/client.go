package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"maxidp/internal/model"
	"maxidp/internal/registry"
	"maxidp/internal/repository"
	"maxidp/pkg/audit"
	"maxidp/pkg/password"
	"maxidp/pkg/randutil"
	"maxidp/pkg/sanitize"
)

const (
	maxClientNameLength        = 100
	maxClientDescriptionLength = 500
	maxSecretDescriptionLength = 200
	maxCallbacksPerClient      = 20
)

/* Actor 发起管理操作的成员 */
type Actor struct {
	ID     uuid.UUID
	RoleID int
	IP     string
}

/* IsAdmin 管理员 */
func (a Actor) IsAdmin() bool { return a.RoleID == registry.RoleAdmin }

/* ClientAdminStore 客户端管理所需的仓储操作 */
type ClientAdminStore interface {
	ClientLookup
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Client, error)
	ListAll(ctx context.Context) ([]model.Client, error)
	Create(ctx context.Context, c *model.Client, callbacks []string, scopeIDs []int, secret *model.ClientSecret) error
	UpdateInfo(ctx context.Context, clientID string, fields map[string]any) error
	ReplaceCallbacks(ctx context.Context, clientID string, callbacks []string) error
	ReplaceScopes(ctx context.Context, clientID string, scopeIDs []int) error
	AddSecret(ctx context.Context, secret *model.ClientSecret) error
	ListSecrets(ctx context.Context, clientID string) ([]model.ClientSecret, error)
	DeleteSecret(ctx context.Context, clientID string, secretID uuid.UUID) error
	AddManager(ctx context.Context, clientID string, userID uuid.UUID) error
	ListManagers(ctx context.Context, clientID string) ([]model.ClientManager, error)
	RemoveManager(ctx context.Context, clientID string, userID uuid.UUID) error
	Delete(ctx context.Context, clientID string) error
}

/* MemberLookup 成员查找 */
type MemberLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

/*
 * ClientService 客户端管理服务
 * 功能：所有者 / 管理者维护客户端信息、回调白名单、权限范围、密钥与管理者
 *       删除与管理者变更仅限所有者或管理员；不提供所有权转移
 */
type ClientService struct {
	store   ClientAdminStore
	members MemberLookup
	hasher  password.Hasher
}

/* NewClientService 创建客户端管理服务 */
func NewClientService(store ClientAdminStore, members MemberLookup, hasher password.Hasher) *ClientService {
	return &ClientService{store: store, members: members, hasher: hasher}
}

/* CreateClientInput 注册客户端参数 */
type CreateClientInput struct {
	Name         string
	Description  string
	LogoURL      string
	CallbackURLs []string
	ScopeIDs     []int
}

/* IssuedSecret 新签发的密钥，明文只在此返回一次 */
type IssuedSecret struct {
	ID          uuid.UUID `json:"id"`
	Secret      string    `json:"secret"`
	Description string    `json:"description,omitempty"`
}

/* CreatedClient 注册结果 */
type CreatedClient struct {
	Client *model.Client
	Secret *IssuedSecret
}

/*
 * Create 注册客户端并签发首个密钥
 * @param actor - 成为所有者的成员
 */
func (s *ClientService) Create(ctx context.Context, actor Actor, in *CreateClientInput) (*CreatedClient, error) {
	name := sanitize.PlainText(in.Name, maxClientNameLength)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	logo, err := validateLogo(in.LogoURL)
	if err != nil {
		return nil, err
	}
	callbacks, err := validateCallbacks(in.CallbackURLs)
	if err != nil {
		return nil, err
	}
	scopes, err := validateScopeIDs(in.ScopeIDs)
	if err != nil {
		return nil, err
	}

	clientID, err := randutil.ClientID()
	if err != nil {
		return nil, err
	}
	plain, secret, err := s.newSecret(actor, "initial")
	if err != nil {
		return nil, err
	}
	c := &model.Client{
		ID:          clientID,
		Name:        name,
		Description: sanitize.PlainText(in.Description, maxClientDescriptionLength),
		LogoURL:     logo,
		OwnerID:     actor.ID,
	}
	if err := s.store.Create(ctx, c, callbacks, scopes, secret); err != nil {
		if errors.Is(err, repository.ErrClientIDCollision) {
			return nil, fmt.Errorf("%w: client id collision, retry", ErrConflict)
		}
		audit.LogContext(ctx, audit.ActionClientCreate, audit.ResultFailure, actor.ID.String(), clientID, actor.IP, "error", err.Error())
		return nil, err
	}
	audit.LogContext(ctx, audit.ActionClientCreate, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"scopes", registry.FormatScopeIDs(scopes))

	for _, cb := range callbacks {
		c.Callbacks = append(c.Callbacks, model.ClientCallback{ClientID: clientID, CallbackURL: cb})
	}
	for _, id := range scopes {
		c.Scopes = append(c.Scopes, model.ClientScope{ClientID: clientID, ScopeID: id})
	}
	return &CreatedClient{
		Client: c,
		Secret: &IssuedSecret{ID: secret.ID, Secret: plain, Description: secret.Description},
	}, nil
}

func (s *ClientService) newSecret(actor Actor, description string) (string, *model.ClientSecret, error) {
	plain, err := randutil.Secret()
	if err != nil {
		return "", nil, err
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", nil, err
	}
	return plain, &model.ClientSecret{
		ID:          uuid.New(),
		SecretHash:  hash,
		IssuedBy:    actor.ID,
		Description: sanitize.PlainText(description, maxSecretDescriptionLength),
	}, nil
}

/* validateLogo 空值表示不设置图标 */
func validateLogo(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	logo, ok := sanitize.LogoURL(raw)
	if !ok {
		return "", fmt.Errorf("%w: logo_url must be an http(s) URL", ErrValidation)
	}
	return logo, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateCallbacks(urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: at least one callback_url is required", ErrValidation)
	}
	if len(urls) > maxCallbacksPerClient {
		return nil, fmt.Errorf("%w: at most %d callback_urls", ErrValidation, maxCallbacksPerClient)
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if err := sanitize.CallbackURL(u); err != nil {
			return nil, fmt.Errorf("%w: callback_url %q: %v", ErrValidation, u, err)
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out, nil
}

func validateScopeIDs(ids []int) ([]int, error) {
	ids = registry.NormalizeScopeIDs(ids)
	for _, id := range ids {
		if !registry.IsScopeID(id) {
			return nil, fmt.Errorf("%w: unknown scope %d", ErrValidation, id)
		}
	}
	return ids, nil
}

/* List 管理员返回全部客户端，其他成员返回自己拥有或管理的 */
func (s *ClientService) List(ctx context.Context, actor Actor) ([]model.Client, error) {
	if actor.IsAdmin() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListForUser(ctx, actor.ID)
}

/*
 * Get 读取客户端
 * @return error - 不存在 ErrNotFound；无权限 ErrForbidden
 */
func (s *ClientService) Get(ctx context.Context, actor Actor, clientID string) (*model.Client, error) {
	c, err := s.store.GetClientByID(ctx, clientID)
	if errors.Is(err, repository.ErrClientNotFound) {
		return nil, fmt.Errorf("%w: client", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !c.IsManagedBy(actor.ID) {
		return nil, ErrForbidden
	}
	return c, nil
}

/* getOwned 仅所有者或管理员 */
func (s *ClientService) getOwned(ctx context.Context, actor Actor, clientID string) (*model.Client, error) {
	c, err := s.Get(ctx, actor, clientID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && c.OwnerID != actor.ID {
		return nil, ErrForbidden
	}
	return c, nil
}

/* UpdateClientInput 可修改的信息，nil 表示不修改 */
type UpdateClientInput struct {
	Name        *string
	Description *string
	LogoURL     *string
}

/* Update 修改名称、描述、图标 */
func (s *ClientService) Update(ctx context.Context, actor Actor, clientID string, in *UpdateClientInput) (*model.Client, error) {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if in.Name != nil {
		name := sanitize.PlainText(*in.Name, maxClientNameLength)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		fields["name"] = name
	}
	if in.Description != nil {
		fields["description"] = sanitize.PlainText(*in.Description, maxClientDescriptionLength)
	}
	if in.LogoURL != nil {
		logo, err := validateLogo(*in.LogoURL)
		if err != nil {
			return nil, err
		}
		fields["logo_url"] = logo
	}
	if err := s.store.UpdateInfo(ctx, clientID, fields); err != nil {
		return nil, s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionClientUpdate, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"fields", strings.Join(sortedKeys(fields), ","))
	return s.store.GetClientByID(ctx, clientID)
}

/* ReplaceCallbacks 替换回调白名单 */
func (s *ClientService) ReplaceCallbacks(ctx context.Context, actor Actor, clientID string, urls []string) error {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return err
	}
	callbacks, err := validateCallbacks(urls)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceCallbacks(ctx, clientID, callbacks); err != nil {
		return s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionClientUpdate, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"fields", "callbacks")
	return nil
}

/* ReplaceScopes 替换允许的权限范围；已签发的令牌不受影响 */
func (s *ClientService) ReplaceScopes(ctx context.Context, actor Actor, clientID string, ids []int) error {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return err
	}
	scopes, err := validateScopeIDs(ids)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceScopes(ctx, clientID, scopes); err != nil {
		return s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionClientUpdate, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"fields", "scopes", "scopes", registry.FormatScopeIDs(scopes))
	return nil
}

/* IssueSecret 追加一个并存的密钥（轮换） */
func (s *ClientService) IssueSecret(ctx context.Context, actor Actor, clientID, description string) (*IssuedSecret, error) {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	plain, secret, err := s.newSecret(actor, description)
	if err != nil {
		return nil, err
	}
	secret.ClientID = clientID
	if err := s.store.AddSecret(ctx, secret); err != nil {
		return nil, s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionSecretIssue, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"secret_id", secret.ID.String())
	return &IssuedSecret{ID: secret.ID, Secret: plain, Description: secret.Description}, nil
}

/* ListSecrets 密钥元数据（哈希不序列化） */
func (s *ClientService) ListSecrets(ctx context.Context, actor Actor, clientID string) ([]model.ClientSecret, error) {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	return s.store.ListSecrets(ctx, clientID)
}

/*
 * RevokeSecret 吊销密钥
 * 不允许吊销最后一个密钥，否则客户端无法再兑换授权码
 */
func (s *ClientService) RevokeSecret(ctx context.Context, actor Actor, clientID string, secretID uuid.UUID) error {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return err
	}
	secrets, err := s.store.ListSecrets(ctx, clientID)
	if err != nil {
		return err
	}
	found := false
	for _, sec := range secrets {
		if sec.ID == secretID {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: secret", ErrNotFound)
	}
	if len(secrets) == 1 {
		return fmt.Errorf("%w: cannot revoke the last secret, issue a new one first", ErrConflict)
	}
	if err := s.store.DeleteSecret(ctx, clientID, secretID); err != nil {
		return s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionSecretRevoke, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"secret_id", secretID.String())
	return nil
}

/* ListManagers 管理者列表 */
func (s *ClientService) ListManagers(ctx context.Context, actor Actor, clientID string) ([]model.ClientManager, error) {
	if _, err := s.Get(ctx, actor, clientID); err != nil {
		return nil, err
	}
	return s.store.ListManagers(ctx, clientID)
}

/* AddManager 按用户名添加管理者，仅所有者或管理员 */
func (s *ClientService) AddManager(ctx context.Context, actor Actor, clientID, username string) (*model.User, error) {
	c, err := s.getOwned(ctx, actor, clientID)
	if err != nil {
		return nil, err
	}
	uname, ok := sanitize.Username(username)
	if !ok {
		return nil, fmt.Errorf("%w: invalid username", ErrValidation)
	}
	member, err := s.members.FindByUsername(ctx, uname)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: member", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if member.ID == c.OwnerID {
		return nil, fmt.Errorf("%w: the owner is already in charge of this client", ErrConflict)
	}
	if err := s.store.AddManager(ctx, clientID, member.ID); err != nil {
		return nil, s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionManagerAdd, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"member_id", member.ID.String())
	return member, nil
}

/* RemoveManager 移除管理者，仅所有者或管理员 */
func (s *ClientService) RemoveManager(ctx context.Context, actor Actor, clientID string, memberID uuid.UUID) error {
	if _, err := s.getOwned(ctx, actor, clientID); err != nil {
		return err
	}
	if err := s.store.RemoveManager(ctx, clientID, memberID); err != nil {
		return s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionManagerRemove, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP,
		"member_id", memberID.String())
	return nil
}

/* Delete 删除客户端（事务级联），仅所有者或管理员 */
func (s *ClientService) Delete(ctx context.Context, actor Actor, clientID string) error {
	if _, err := s.getOwned(ctx, actor, clientID); err != nil {
		audit.LogContext(ctx, audit.ActionClientDelete, audit.ResultDenied, actor.ID.String(), clientID, actor.IP)
		return err
	}
	if err := s.store.Delete(ctx, clientID); err != nil {
		audit.LogContext(ctx, audit.ActionClientDelete, audit.ResultFailure, actor.ID.String(), clientID, actor.IP, "error", err.Error())
		return s.mapStoreErr(err)
	}
	audit.LogContext(ctx, audit.ActionClientDelete, audit.ResultSuccess, actor.ID.String(), clientID, actor.IP)
	return nil
}

func (s *ClientService) mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrClientNotFound):
		return fmt.Errorf("%w: client", ErrNotFound)
	case errors.Is(err, repository.ErrSecretNotFound):
		return fmt.Errorf("%w: secret", ErrNotFound)
	case errors.Is(err, repository.ErrManagerNotFound):
		return fmt.Errorf("%w: manager", ErrNotFound)
	case errors.Is(err, repository.ErrManagerExists):
		return fmt.Errorf("%w: member already manages this client", ErrConflict)
	default:
		return err
	}
}
