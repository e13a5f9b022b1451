package services

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/auth"
	"shop_back_end/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const minPasswordLength = 6

type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Status   string
}

// UserPatch : seuls les champs renseignés sont modifiés
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
	Status   *string
}

type UserFilter struct {
	Role   string
	Status string
	Search string
	Page   int
	Limit  int
}

type UserList struct {
	Users      []models.User     `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

type UserService struct {
	users    UserStore
	orders   OrderStore
	sessions SessionRevoker
}

// NewUserService : sessions peut être nil
func NewUserService(users UserStore, orders OrderStore, sessions SessionRevoker) *UserService {
	return &UserService{users: users, orders: orders, sessions: sessions}
}

func validateName(name string) error {
	if n := len(strings.TrimSpace(name)); n < 2 || n > 50 {
		return apperr.Validation("Name must be between 2 and 50 characters")
	}
	return nil
}

var validate = validator.New()

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperr.Validation("Invalid email address")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > 100 {
		return apperr.Validation("Password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// Register crée un compte client local
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.Create(ctx, UserInput{Name: name, Email: email, Password: password, Role: string(models.RoleUser)})
}

// Authenticate vérifie les identifiants ; un ancien hash bcrypt est migré vers Argon2id
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, storeErr(err, "get user by email", "User not found")
	}
	if u.Password == "" {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	ok, err := auth.VerifyPassword(password, u.Password)
	if err != nil {
		log.Printf("⚠️ Vérification mot de passe %s: %v", u.ID, err)
	}
	if !ok {
		return nil, apperr.Unauthorized("Invalid email or password")
	}
	if u.Status != models.UserActive {
		return nil, apperr.Forbidden("Account is inactive")
	}

	if auth.IsBcryptHash(u.Password) {
		if hash, err := auth.HashPassword(password); err == nil {
			if _, err := s.users.Update(ctx, u.ID, func(x *models.User) error {
				x.Password = hash
				return nil
			}); err != nil {
				log.Printf("⚠️ Migration hash Argon2 %s: %v", u.ID, err)
			} else {
				log.Printf("🔐 Hash migré vers Argon2id pour %s", u.ID)
			}
		}
	}
	return u, nil
}

// FindOrCreateOAuth rattache une connexion OAuth à un compte existant ou en crée un
func (s *UserService) FindOrCreateOAuth(ctx context.Context, email, name, provider string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if u.Status != models.UserActive {
			return nil, apperr.Forbidden("Account is inactive")
		}
		return u, nil
	}
	if !isNotFound(err) {
		return nil, storeErr(err, "get user by email", "User not found")
	}

	if strings.TrimSpace(name) == "" {
		name = strings.Split(email, "@")[0]
	}
	now := time.Now().UTC()
	u = &models.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     email,
		Role:      models.RoleUser,
		Status:    models.UserActive,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if isDuplicate(err) {
			return s.users.GetByEmail(ctx, email)
		}
		return nil, storeErr(err, "create oauth user", "User not found")
	}
	log.Printf("✅ Compte %s créé via %s", u.ID, provider)
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "get user", "User not found")
	}
	return u, nil
}

// List inclut le nombre de commandes de chaque utilisateur
func (s *UserService) List(ctx context.Context, f UserFilter) (*UserList, error) {
	var role models.Role
	if f.Role != "" {
		r, err := models.ParseRole(f.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role")
		}
		role = r
	}
	var status models.UserStatus
	if f.Status != "" {
		st, err := models.ParseUserStatus(f.Status)
		if err != nil {
			return nil, apperr.Validation("Invalid status")
		}
		status = st
	}

	all, err := s.users.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list users", "User not found")
	}
	orders, err := s.orders.All(ctx)
	if err != nil {
		return nil, storeErr(err, "list orders", "Order not found")
	}
	counts := make(map[uuid.UUID]int)
	for _, o := range orders {
		if o.UserID != nil {
			counts[*o.UserID]++
		}
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	matched := make([]models.User, 0, len(all))
	for _, u := range all {
		if role != "" && u.Role != role {
			continue
		}
		if status != "" && u.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(u.Email, search) {
			continue
		}
		u.OrderCount = counts[u.ID]
		matched = append(matched, u)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	items, pagination := page(matched, f.Page, f.Limit)
	return &UserList{Users: items, Pagination: pagination}, nil
}

// Create est utilisé par l'inscription et par l'administration (tout rôle)
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	email := models.NormalizeEmail(in.Email)
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := models.RoleUser
	if in.Role != "" {
		r, err := models.ParseRole(in.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role")
		}
		role = r
	}
	status := models.UserActive
	if in.Status != "" {
		st, err := models.ParseUserStatus(in.Status)
		if err != nil {
			return nil, apperr.Validation("Invalid status")
		}
		status = st
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(in.Name),
		Email:     email,
		Password:  hash,
		Role:      role,
		Status:    status,
		Provider:  models.ProviderLocal,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if isDuplicate(err) {
			return nil, apperr.Validation("User with this email already exists")
		}
		return nil, storeErr(err, "create user", "User not found")
	}
	log.Printf("✅ Utilisateur créé: %s (%s)", u.Email, u.Role)
	return u, nil
}

// otherAdmins compte les admins hors de l'utilisateur donné ; activeOnly ignore les comptes inactifs
func (s *UserService) otherAdmins(ctx context.Context, id uuid.UUID, activeOnly bool) (int, error) {
	all, err := s.users.All(ctx)
	if err != nil {
		return 0, storeErr(err, "list users", "User not found")
	}
	n := 0
	for _, u := range all {
		if u.ID == id || u.Role != models.RoleAdmin {
			continue
		}
		if !activeOnly || u.IsActiveAdmin() {
			n++
		}
	}
	return n, nil
}

func (s *UserService) Update(ctx context.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	var hash string
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		h, err := auth.HashPassword(*patch.Password)
		if err != nil {
			return nil, apperr.Internal(err, "hash password")
		}
		hash = h
	}
	others, err := s.otherAdmins(ctx, id, true)
	if err != nil {
		return nil, err
	}

	u, err := s.users.Update(ctx, id, func(u *models.User) error {
		wasActiveAdmin := u.IsActiveAdmin()
		if patch.Name != nil {
			if err := validateName(*patch.Name); err != nil {
				return err
			}
			u.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			email := models.NormalizeEmail(*patch.Email)
			if err := validateEmail(email); err != nil {
				return err
			}
			u.Email = email
		}
		if patch.Role != nil {
			r, err := models.ParseRole(*patch.Role)
			if err != nil {
				return apperr.Validation("Invalid role")
			}
			u.Role = r
		}
		if patch.Status != nil {
			st, err := models.ParseUserStatus(*patch.Status)
			if err != nil {
				return apperr.Validation("Invalid status")
			}
			u.Status = st
		}
		if hash != "" {
			u.Password = hash
		}
		if wasActiveAdmin && !u.IsActiveAdmin() && others == 0 {
			return apperr.Validation("Cannot demote or deactivate the last admin user")
		}
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, apperr.Validation("User with this email already exists")
		}
		return nil, storeErr(err, "update user", "User not found")
	}

	if patch.Status != nil && s.sessions != nil {
		if u.Status == models.UserInactive {
			err = s.sessions.DisableUser(ctx, u.ID.String())
		} else {
			err = s.sessions.EnableUser(ctx, u.ID.String())
		}
		if err != nil {
			log.Printf("⚠️ Mise à jour des sessions de %s: %v", u.ID, err)
		}
	}
	return u, nil
}

// Delete refuse de supprimer le dernier administrateur
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return storeErr(err, "get user", "User not found")
	}
	if u.Role == models.RoleAdmin {
		others, err := s.otherAdmins(ctx, id, false)
		if err != nil {
			return err
		}
		if others == 0 {
			return apperr.Validation("Cannot delete the last admin user")
		}
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storeErr(err, "delete user", "User not found")
	}
	if s.sessions != nil {
		if err := s.sessions.DisableUser(ctx, id.String()); err != nil {
			log.Printf("⚠️ Révocation des sessions de %s: %v", id, err)
		}
	}
	log.Printf("🗑️ Utilisateur supprimé: %s", u.Email)
	return nil
}
