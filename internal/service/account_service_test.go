package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/validation"
)

func TestAccountCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.account(t, nil, "taken", models.RoleAdmin)
	missingFamily := int64(999)
	badEmail := "not-an-email"

	tests := []struct {
		name    string
		in      AccountInput
		wantErr error
	}{
		{"duplicate username", AccountInput{Username: "taken", Password: testPassword, Name: "Dup", Role: models.RoleParent}, ErrUsernameTaken},
		{"short username", AccountInput{Username: "ab", Password: testPassword, Name: "Abe", Role: models.RoleParent}, nil},
		{"short password", AccountInput{Username: "newuser", Password: "short", Name: "New", Role: models.RoleParent}, nil},
		{"bad role", AccountInput{Username: "newuser", Password: testPassword, Name: "New", Role: "owner"}, nil},
		{"bad email", AccountInput{Username: "newuser", Password: testPassword, Name: "New", Role: models.RoleParent, Email: &badEmail}, nil},
		{"missing family", AccountInput{Username: "newuser", Password: testPassword, Name: "New", Role: models.RoleParent, FamilyID: &missingFamily}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Create(ctx, tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			var ve validation.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("Create() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestAccountUpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := models.NewPrincipal(f.account(t, nil, "admin", models.RoleAdmin))
	family := f.family(t, "Smiths")
	account := f.account(t, nil, "someone", models.RoleParent)

	grade := "Year 4"
	updated, err := f.accounts.Update(ctx, admin, account.ID, AccountUpdate{
		Name:     "Someone Else",
		Role:     models.RoleChild,
		Grade:    &grade,
		FamilyID: &family.ID,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Role != models.RoleChild || updated.FamilyID == nil || *updated.Grade != grade {
		t.Errorf("Update() = %+v", updated)
	}

	var ve validation.ValidationError
	if err := f.accounts.Delete(ctx, admin, admin.ID); !errors.As(err, &ve) {
		t.Errorf("self Delete() error = %v, want ValidationError", err)
	}
	if err := f.accounts.Delete(ctx, admin, account.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := f.accounts.Get(ctx, account.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := f.accounts.Delete(ctx, admin, account.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestAccountUpdateRoleGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family := f.family(t, "Smiths")
	adminAccount := f.account(t, nil, "admin", models.RoleAdmin)
	admin := models.NewPrincipal(adminAccount)
	child := f.child(t, family, "kid", 50)

	tests := []struct {
		name    string
		account *models.Account
		role    models.Role
	}{
		{"admin demotes self", adminAccount, models.RoleParent},
		{"child promoted to parent", child, models.RoleParent},
		{"child promoted to admin", child, models.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Update(ctx, admin, tt.account.ID, AccountUpdate{
				Name:     tt.account.Name,
				Role:     tt.role,
				FamilyID: tt.account.FamilyID,
			})
			var ve validation.ValidationError
			if !errors.As(err, &ve) || ve.Field != "role" {
				t.Errorf("Update() error = %v, want role ValidationError", err)
			}
		})
	}

	got, err := f.accounts.Get(ctx, child.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Role != models.RoleChild {
		t.Errorf("child role = %q after rejected update", got.Role)
	}
	f.assertBalanceLaw(t, child.ID)

	// Profile edits that keep the role still go through.
	if _, err := f.accounts.Update(ctx, admin, child.ID, AccountUpdate{
		Name:     "Kiddo",
		Role:     models.RoleChild,
		FamilyID: child.FamilyID,
	}); err != nil {
		t.Errorf("Update() keeping role error = %v", err)
	}
	if _, err := f.accounts.Update(ctx, admin, adminAccount.ID, AccountUpdate{
		Name: "Head Admin",
		Role: models.RoleAdmin,
	}); err != nil {
		t.Errorf("Update() own profile error = %v", err)
	}
}

func TestAccountUpdateLastAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.account(t, nil, "first", models.RoleAdmin)
	second := f.account(t, nil, "second", models.RoleAdmin)

	// A principal whose account is not an admin row, as with a token minted
	// before its holder was demoted.
	stale := &models.Principal{ID: 9999, Role: models.RoleAdmin}

	if _, err := f.accounts.Update(ctx, models.NewPrincipal(first), second.ID, AccountUpdate{
		Name: second.Name,
		Role: models.RoleParent,
	}); err != nil {
		t.Fatalf("Update() demoting second admin error = %v", err)
	}

	_, err := f.accounts.Update(ctx, stale, first.ID, AccountUpdate{Name: first.Name, Role: models.RoleParent})
	var ve validation.ValidationError
	if !errors.As(err, &ve) || ve.Field != "role" {
		t.Errorf("Update() demoting last admin error = %v, want role ValidationError", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	principal := models.NewPrincipal(f.account(t, nil, "someone", models.RoleParent))

	var ve validation.ValidationError
	if err := f.accounts.ChangePassword(ctx, principal, "wrong-password", "new-password-1"); !errors.As(err, &ve) {
		t.Errorf("ChangePassword() with wrong password error = %v, want ValidationError", err)
	}
	if err := f.accounts.ChangePassword(ctx, principal, testPassword, "short"); !errors.As(err, &ve) {
		t.Errorf("ChangePassword() with short password error = %v, want ValidationError", err)
	}
	if err := f.accounts.ChangePassword(ctx, principal, testPassword, "new-password-1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	me, err := f.accounts.Me(ctx, principal)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if !security.CheckPassword("new-password-1", me.PasswordHash) {
		t.Error("new password not stored")
	}
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.accounts.EnsureAdmin(ctx, "root", testPassword)
	if err != nil || !created {
		t.Fatalf("EnsureAdmin() = %v, %v; want true, nil", created, err)
	}
	created, err = f.accounts.EnsureAdmin(ctx, "root2", testPassword)
	if err != nil || created {
		t.Errorf("second EnsureAdmin() = %v, %v; want false, nil", created, err)
	}
}

func TestAuthLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	family := f.family(t, "Smiths")
	child := f.child(t, family, "kid1", 0)

	accounts := repository.NewAccountRepository(f.db)
	auth := NewAuthService(accounts, security.NewTokenManager("0123456789abcdef0123", time.Hour))

	result, err := auth.Login(ctx, " kid1 ", testPassword)
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" || result.User.ID != child.ID {
		t.Errorf("Login() = %+v", result)
	}

	principal, err := auth.Authenticate(ctx, result.Token)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if principal.ID != child.ID || principal.Role != models.RoleChild || *principal.FamilyID != family.ID {
		t.Errorf("Authenticate() = %+v", principal)
	}

	_, wrongPassword := auth.Login(ctx, "kid1", "wrong-password")
	_, unknownUser := auth.Login(ctx, "nobody", testPassword)
	if !errors.Is(wrongPassword, ErrInvalidCredentials) || !errors.Is(unknownUser, ErrInvalidCredentials) {
		t.Errorf("Login() errors = %v / %v, want ErrInvalidCredentials for both", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("Login() messages differ: %q vs %q", wrongPassword, unknownUser)
	}

	if _, err := auth.Authenticate(ctx, "garbage"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authenticate(garbage) error = %v, want ErrUnauthorized", err)
	}

	// Deleted accounts lose access even with an unexpired token
	if err := accounts.Delete(ctx, child.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := auth.Authenticate(ctx, result.Token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Authenticate() after delete error = %v, want ErrUnauthorized", err)
	}
}
