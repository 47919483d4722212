package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "simple", input: "shoes", wantErr: false},
		{name: "with hyphen", input: "my-shop", wantErr: false},
		{name: "digits", input: "shop42", wantErr: false},
		{name: "minimum length", input: "abc", wantErr: false},
		{name: "maximum length", input: strings.Repeat("a", 30), wantErr: false},
		{name: "too short", input: "ab", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 31), wantErr: true},
		{name: "leading hyphen", input: "-shop", wantErr: true},
		{name: "trailing hyphen", input: "shop-", wantErr: true},
		{name: "uppercase", input: "Shop", wantErr: true},
		{name: "underscore", input: "my_shop", wantErr: true},
		{name: "dot", input: "my.shop", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDerivedNames(t *testing.T) {
	assert.Equal(t, "db_my_shop", DatabaseName("my-shop"))
	assert.Equal(t, "user_my_shop", RoleName("my-shop"))
	assert.Equal(t, "tenant-my-shop", ProjectName("my-shop"))
	assert.Equal(t, "medusa-my-shop", ContainerName("medusa", "my-shop"))
	assert.Equal(t, "my-shop.example.com", Subdomain("my-shop", "example.com"))
	assert.Equal(t, "admin.my-shop.example.com", AdminSubdomain("my-shop", "example.com"))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    TenantStatus
		to      TenantStatus
		allowed bool
	}{
		{StatusProvisioning, StatusRunning, true},
		{StatusProvisioning, StatusError, true},
		{StatusProvisioning, StatusDeleting, true},
		{StatusRunning, StatusSuspended, true},
		{StatusSuspended, StatusRunning, true},
		{StatusRunning, StatusDeleting, true},
		{StatusError, StatusDeleting, true},
		{StatusDeleting, StatusError, true},
		{StatusRunning, StatusProvisioning, false},
		{StatusSuspended, StatusProvisioning, false},
		{StatusError, StatusRunning, false},
		{StatusDeleting, StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestParseSiteType(t *testing.T) {
	for _, known := range SiteTypes() {
		parsed, ok := ParseSiteType(string(known))
		assert.True(t, ok)
		assert.Equal(t, known, parsed)
	}

	parsed, ok := ParseSiteType(" Ecommerce ")
	assert.True(t, ok)
	assert.Equal(t, SiteTypeEcommerce, parsed)

	_, ok = ParseSiteType("wiki")
	assert.False(t, ok)
}
