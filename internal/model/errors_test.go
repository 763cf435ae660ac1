package model

import (
	"net/http"
	"testing"
)

func TestAPIError_HTTPStatus_DefaultsByKind(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindAuthentication, http.StatusUnauthorized},
		{KindAuthorization, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindDependency, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &APIError{Kind: tt.kind}
			if got := err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAPIError_HTTPStatus_OverrideWins(t *testing.T) {
	err := NewMissingFieldsError(http.StatusConflict, "fields_required", "name")
	if got := err.HTTPStatus(); got != http.StatusConflict {
		t.Errorf("HTTPStatus() = %d, want %d", got, http.StatusConflict)
	}
	if err.Kind != KindValidation {
		t.Errorf("Kind = %q, want %q", err.Kind, KindValidation)
	}
}

func TestOwnerMismatchError_IsUnauthorized(t *testing.T) {
	err := NewOwnerMismatchError()
	if got := err.HTTPStatus(); got != http.StatusUnauthorized {
		t.Errorf("HTTPStatus() = %d, want %d", got, http.StatusUnauthorized)
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Errorf("ParseRole(admin) = %q, %v", r, err)
	}
	if r, err := ParseRole("student"); err != nil || r != RoleStudent {
		t.Errorf("ParseRole(student) = %q, %v", r, err)
	}
	if _, err := ParseRole("Admin"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestCourseUser_Owns(t *testing.T) {
	u := &CourseUser{CoursesBought: []string{"c1", "c2"}}
	if !u.Owns("c1") {
		t.Error("expected c1 to be owned")
	}
	if u.Owns("c3") {
		t.Error("expected c3 not to be owned")
	}
}

func TestParseTenant(t *testing.T) {
	for _, tenant := range Tenants() {
		got, err := ParseTenant(string(tenant))
		if err != nil || got != tenant {
			t.Errorf("ParseTenant(%q) = %q, %v", tenant, got, err)
		}
	}
	if _, err := ParseTenant("gismos"); err == nil {
		t.Error("expected error for route suffix used as tenant")
	}
}

func TestAPIError_WithMessage_DoesNotMutateOriginal(t *testing.T) {
	base := NewCourseNotFoundError()
	derived := base.WithMessage("no such course found")

	if base.Message != "course not found" {
		t.Errorf("base.Message = %q, changed unexpectedly", base.Message)
	}
	if derived.Message != "no such course found" || derived.Code != ErrCodeCourseNotFound {
		t.Errorf("derived = %+v", derived)
	}
}

func TestAPIError_WithDetail_CopiesDetails(t *testing.T) {
	base := NewMissingFieldsError(http.StatusBadRequest, "required", "name")
	derived := base.WithDetail("optional", []string{"ph_num"})

	if _, ok := base.Details["optional"]; ok {
		t.Error("base.Details must not be modified")
	}
	if _, ok := derived.Details["required"]; !ok {
		t.Error("derived.Details should keep existing keys")
	}
	if _, ok := derived.Details["optional"]; !ok {
		t.Error("derived.Details should contain the new key")
	}
}

func TestAdminCodeError_IsConflict(t *testing.T) {
	if got := NewAdminCodeError().HTTPStatus(); got != http.StatusConflict {
		t.Errorf("HTTPStatus() = %d, want %d", got, http.StatusConflict)
	}
}
