package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/docmesh/docman-service/internal/core/domain"
	"github.com/docmesh/docman-service/internal/infra/security"
)

func newUserFixture(t *testing.T, users *userRepoFake) *UserService {
	t.Helper()
	return NewUserService(testConfig(), users, newRoleRepoFake(), newTokenRepoFake(), security.NewTotpVerifier("docs"), nil)
}

func TestUserServiceCreate(t *testing.T) {
	users := newUserRepoFake()
	svc := newUserFixture(t, users)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username:     "alice",
		Password:     "correct horse battery",
		Email:        "alice@example.com",
		StorageQuota: 1024,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if user.RoleID != domain.DefaultUserRoleID {
		t.Fatalf("expected default role, got %s", user.RoleID)
	}
	if !user.Onboarding {
		t.Fatalf("expected onboarding to start enabled")
	}
	if user.PasswordHash == "correct horse battery" || user.PasswordHash == "" {
		t.Fatalf("expected the password to be hashed")
	}
	if ok, _ := security.VerifyPassword("correct horse battery", user.PasswordHash); !ok {
		t.Fatalf("expected stored hash to verify")
	}
}

func TestUserServiceCreateDuplicateUsername(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice"})
	svc := newUserFixture(t, users)

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username: "alice",
		Password: "correct horse battery",
		Email:    "other@example.com",
	})
	if !errors.Is(err, ErrAlreadyExistingUsername) {
		t.Fatalf("expected ErrAlreadyExistingUsername, got %v", err)
	}
}

func TestUserServiceCreateValidation(t *testing.T) {
	svc := newUserFixture(t, newUserRepoFake())

	cases := []struct {
		name  string
		input CreateUserInput
		field string
	}{
		{"short username", CreateUserInput{Username: "ab", Password: "correct horse battery", Email: "a@b.c"}, "username"},
		{"bad characters", CreateUserInput{Username: "al ice", Password: "correct horse battery", Email: "a@b.c"}, "username"},
		{"bad email", CreateUserInput{Username: "alice", Password: "correct horse battery", Email: "nope"}, "email"},
		{"weak password", CreateUserInput{Username: "alice", Password: "short", Email: "a@b.c"}, "password"},
		{"negative quota", CreateUserInput{Username: "alice", Password: "correct horse battery", Email: "a@b.c", StorageQuota: -1}, "storage_quota"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, vErr.Field)
			}
		})
	}
}

func TestUserServiceUpdateByAdmin(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", RoleID: "user", Username: "alice", Email: "old@example.com"})
	svc := newUserFixture(t, users)

	email := "new@example.com"
	quota := int64(4096)
	disabled := true
	err := svc.UpdateByAdmin(context.Background(), "alice", AdminUpdateInput{
		Email:        &email,
		StorageQuota: &quota,
		Disabled:     &disabled,
	})
	if err != nil {
		t.Fatalf("UpdateByAdmin returned error: %v", err)
	}

	stored := users.users["user-1"]
	if stored.Email != email {
		t.Fatalf("expected email update, got %s", stored.Email)
	}
	if stored.StorageQuota != quota {
		t.Fatalf("expected quota update, got %d", stored.StorageQuota)
	}
	if !stored.IsDisabled() {
		t.Fatalf("expected account to be disabled")
	}

	enabled := false
	if err := svc.UpdateByAdmin(context.Background(), "alice", AdminUpdateInput{Disabled: &enabled}); err != nil {
		t.Fatalf("re-enable returned error: %v", err)
	}
	if users.users["user-1"].IsDisabled() {
		t.Fatalf("expected account to be re-enabled")
	}
}

func TestUserServiceDisableBuiltinsIsNoop(t *testing.T) {
	users := newUserRepoFake(
		domain.User{ID: domain.AdminUserID, RoleID: "admin", Username: "admin"},
		domain.User{ID: "guest", RoleID: "user", Username: domain.GuestUsername},
	)
	svc := newUserFixture(t, users)

	disabled := true
	for _, username := range []string{"admin", domain.GuestUsername} {
		if err := svc.UpdateByAdmin(context.Background(), username, AdminUpdateInput{Disabled: &disabled}); err != nil {
			t.Fatalf("UpdateByAdmin(%s) returned error: %v", username, err)
		}
	}
	if users.users[domain.AdminUserID].IsDisabled() {
		t.Fatalf("expected the admin account to stay enabled")
	}
	if users.users["guest"].IsDisabled() {
		t.Fatalf("expected the guest account to stay enabled")
	}
}

func TestUserServiceDisableAdminCapableAccountIsNoop(t *testing.T) {
	users := newUserRepoFake(
		domain.User{ID: "user-9", RoleID: "admin", Username: "bob"},
	)
	svc := newUserFixture(t, users)

	disabled := true
	if err := svc.UpdateByAdmin(context.Background(), "bob", AdminUpdateInput{Disabled: &disabled}); err != nil {
		t.Fatalf("UpdateByAdmin returned error: %v", err)
	}
	if users.users["user-9"].IsDisabled() {
		t.Fatalf("expected the admin-capable account to stay enabled")
	}
}

func TestUserServiceUpdateByAdminUnknownUser(t *testing.T) {
	svc := newUserFixture(t, newUserRepoFake())

	if err := svc.UpdateByAdmin(context.Background(), "nobody", AdminUpdateInput{}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceHasBaseFunction(t *testing.T) {
	svc := newUserFixture(t, newUserRepoFake())

	admin := &domain.User{ID: "a", RoleID: "admin"}
	regular := &domain.User{ID: "u", RoleID: "user"}

	if ok, err := svc.HasBaseFunction(context.Background(), admin, domain.BaseFunctionAdmin); err != nil || !ok {
		t.Fatalf("expected admin role to grant ADMIN, got ok=%v err=%v", ok, err)
	}
	if ok, err := svc.HasBaseFunction(context.Background(), regular, domain.BaseFunctionAdmin); err != nil || ok {
		t.Fatalf("expected user role to lack ADMIN, got ok=%v err=%v", ok, err)
	}
	if ok, err := svc.HasBaseFunction(context.Background(), regular, domain.BaseFunctionPassword); err != nil || !ok {
		t.Fatalf("expected user role to grant PASSWORD, got ok=%v err=%v", ok, err)
	}
}

func TestUserServiceTotpLifecycle(t *testing.T) {
	fixed := time.Date(2024, 5, 10, 12, 0, 15, 0, time.UTC)
	hash := mustHash(t, "correct horse battery")
	users := newUserRepoFake(domain.User{ID: "user-1", RoleID: "user", Username: "alice", PasswordHash: hash})

	verifier := security.NewTotpVerifier("docs").WithClock(func() time.Time { return fixed })
	svc := NewUserService(testConfig(), users, newRoleRepoFake(), newTokenRepoFake(), verifier, nil)

	user, _ := users.GetByID(context.Background(), "user-1")
	secret, err := svc.EnableTotp(context.Background(), user)
	if err != nil {
		t.Fatalf("EnableTotp returned error: %v", err)
	}
	if secret == "" {
		t.Fatalf("expected a secret")
	}
	stored := users.users["user-1"]
	if stored.TotpSecret == nil || *stored.TotpSecret != secret {
		t.Fatalf("expected the secret to be persisted")
	}

	if svc.TestTotp(user, "000000") {
		t.Fatalf("expected a wrong code to fail")
	}

	// Wrong password must not clear the secret.
	if err := svc.DisableTotpSelf(context.Background(), user, "not the password"); err == nil {
		t.Fatalf("expected wrong password to be rejected")
	}
	if users.users["user-1"].TotpSecret == nil {
		t.Fatalf("expected secret to survive a failed disable")
	}

	if err := svc.DisableTotpSelf(context.Background(), user, "correct horse battery"); err != nil {
		t.Fatalf("DisableTotpSelf returned error: %v", err)
	}
	if users.users["user-1"].TotpSecret != nil {
		t.Fatalf("expected secret to be cleared")
	}
}

func TestUserServiceDisableTotpByAdmin(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	users := newUserRepoFake(domain.User{ID: "user-1", RoleID: "user", Username: "alice", TotpSecret: &secret})
	svc := newUserFixture(t, users)

	if err := svc.DisableTotpByAdmin(context.Background(), "alice"); err != nil {
		t.Fatalf("DisableTotpByAdmin returned error: %v", err)
	}
	if users.users["user-1"].TotpSecret != nil {
		t.Fatalf("expected secret to be cleared")
	}

	if err := svc.DisableTotpByAdmin(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceEnableTotpGuestForbidden(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "guest", RoleID: "user", Username: domain.GuestUsername})
	svc := newUserFixture(t, users)

	guest, _ := users.GetByID(context.Background(), "guest")
	if _, err := svc.EnableTotp(context.Background(), guest); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for the guest identity, got %v", err)
	}
}

func TestUserServiceSetOnboarding(t *testing.T) {
	users := newUserRepoFake(domain.User{ID: "user-1", Username: "alice", Onboarding: true})
	svc := newUserFixture(t, users)

	if err := svc.SetOnboarding(context.Background(), "user-1", false); err != nil {
		t.Fatalf("SetOnboarding returned error: %v", err)
	}
	if users.users["user-1"].Onboarding {
		t.Fatalf("expected onboarding to be cleared")
	}
}
