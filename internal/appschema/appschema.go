// Package appschema holds the application's own versioned schema history and
// the data seeded into a newly created store.
package appschema

import (
	"context"

	"github.com/google/uuid"

	"github.com/kyleking/schemaflow/internal/config"
	"github.com/kyleking/schemaflow/internal/migration"
	"github.com/kyleking/schemaflow/internal/schema"
	"github.com/kyleking/schemaflow/internal/storage"
)

// Entity names use the singular form
const (
	EntityUser                     = "User"
	EntityAccount                  = "Account"
	EntityVerificationToken        = "VerificationToken"
	EntitySession                  = "Session"
	EntityOrganization             = "Organization"
	EntityUserRole                 = "UserRole"
	EntitySubscriptionPlan         = "SubscriptionPlan"
	EntityOrganizationSubscription = "OrganizationSubscription"
	EntityPayment                  = "Payment"
	EntityUsageTracking            = "UsageTracking"
	EntityAPICall                  = "ApiCall"
)

func optional(t schema.Type) schema.Type { return schema.Optional(t) }

func timestamps() []schema.Field {
	return []schema.Field{
		schema.F("createdAt", optional(schema.Date())),
		schema.F("updatedAt", optional(schema.Date())),
	}
}

func table(name string, fields []schema.Field, extra ...schema.Field) schema.Entity {
	return schema.Table(name, append(fields, extra...)...)
}

// V1 is the first release: users only
func V1() schema.Descriptor {
	return schema.Define(
		schema.Table(EntityUser,
			schema.F("id", schema.UUID()),
			schema.F("email", schema.Email()),
			schema.F("passwordHash", schema.String()),
			schema.F("name", optional(schema.String())),
		),
	)
}

// V2 adds authentication, organizations, billing and usage tracking
func V2() schema.Descriptor {
	return schema.Define(
		table(EntityUser, []schema.Field{
			schema.F("id", schema.UUID()),
			schema.F("email", schema.Email()),
			schema.F("emailVerified", optional(schema.Date())),
			schema.F("image", optional(schema.URL())),
			schema.F("passwordHash", schema.String()),
			schema.F("name", optional(schema.String())),
		}, timestamps()...),
		schema.Table(EntityAccount,
			schema.F("id", schema.UUID()),
			// TODO: make userId and type required once every provider sets them
			schema.F("userId", optional(schema.UUID())),
			schema.F("provider", schema.String()),
			schema.F("providerAccountId", schema.String()),
			schema.F("refresh_token", optional(schema.String())),
			schema.F("access_token", optional(schema.String())),
			schema.F("expires_at", optional(schema.Number())),
			schema.F("token_type", optional(schema.String())),
			schema.F("type", optional(schema.String())),
			schema.F("scope", optional(schema.String())),
			schema.F("id_token", optional(schema.String())),
			schema.F("session_state", optional(schema.String())),
		),
		schema.Table(EntityVerificationToken,
			schema.F("id", schema.UUID()),
			schema.F("identifier", schema.String()),
			schema.F("token", schema.String()),
			schema.F("expires", schema.Date()),
		),
		schema.Table(EntitySession,
			schema.F("id", schema.UUID()),
			schema.F("sessionToken", schema.String()),
			schema.F("userId", schema.UUID()),
			schema.F("expires", schema.Date()),
		),
		table(EntityOrganization, []schema.Field{
			schema.F("id", schema.UUID()),
			schema.F("name", schema.String()),
		}, timestamps()...),
		table(EntityUserRole, []schema.Field{
			schema.F("id", schema.UUID()),
			schema.F("userId", schema.UUID()),
			schema.F("organizationId", schema.UUID()),
			schema.F("role", schema.String()),
		}, timestamps()...),
		table(EntitySubscriptionPlan, []schema.Field{
			schema.F("id", schema.UUID()),
			schema.F("name", schema.String()),
			schema.F("price", schema.Number()),
			schema.F("billingCycle", schema.Enum("monthly", "yearly")),
			schema.F("apiLimit", optional(schema.Number())),
			schema.F("featureLimits", optional(schema.Record(schema.String()))),
			schema.F("isActive", schema.Boolean()),
		}, timestamps()...),
		table(EntityOrganizationSubscription, []schema.Field{
			schema.F("id", schema.UUID()),
			schema.F("organizationId", schema.UUID()),
			schema.F("planId", schema.UUID()),
			schema.F("startDate", schema.Date()),
			schema.F("nextBillingDate", schema.Date()),
			schema.F("status", schema.Enum("active", "canceled")),
		}, timestamps()...),
		schema.Table(EntityPayment,
			schema.F("id", schema.UUID()),
			schema.F("organizationId", schema.UUID()),
			schema.F("planId", schema.UUID()),
			schema.F("amount", schema.Number()),
			schema.F("paymentDate", schema.Date()),
			schema.F("status", schema.Enum("successful", "failed")),
			schema.F("createdAt", optional(schema.Date())),
		),
		schema.Table(EntityUsageTracking,
			schema.F("id", schema.UUID()),
			schema.F("organizationId", schema.UUID()),
			schema.F("feature", schema.String()),
			schema.F("usedAmount", schema.Number()),
			schema.F("usageDate", schema.Date()),
		),
		schema.Table(EntityAPICall,
			schema.F("id", schema.UUID()),
			schema.F("organizationId", schema.UUID()),
			schema.F("endpoint", schema.String()),
			schema.F("responseTimeMs", schema.Number()),
			schema.F("costPerCall", schema.Number()),
			schema.F("callDate", schema.Date()),
		),
	)
}

// History returns every released schema version
func History() migration.History {
	return migration.History{
		"v1": {Schema: V1(), PlanHook: migration.IdentityHook},
		"v2": {Schema: V2(), PlanHook: migration.IdentityHook},
	}
}

// SkippedMessage is reported when the store already existed
const SkippedMessage = "Database file exists. Skipping initialization."

// seedNamespace derives stable seed ids, so reseeding a fresh store yields the same rows
var seedNamespace = uuid.MustParse("5f0c1b7e-2d1a-4c59-9a57-0d6c8a3e4b21")

// SeedUser is one user created by a seeder
type SeedUser struct {
	Name  string
	Email string
}

// DevelopmentUsers are the demo accounts of a development store
var DevelopmentUsers = []SeedUser{
	{Name: "Admin", Email: "admin@example.com"},
	{Name: "John Doe", Email: "john.doe@example.com"},
	{Name: "Jane Smith", Email: "jane.smith@example.com"},
}

// ProductionUsers are created in a new production store
var ProductionUsers = []SeedUser{
	{Name: "Admin User", Email: "admin@yourapp.com"},
}

// SeedID returns the id a seeder assigns to the user with email
func SeedID(email string) string {
	return uuid.NewSHA1(seedNamespace, []byte(email)).String()
}

func seedUsers(users []SeedUser) storage.Seeder {
	return func(ctx context.Context, db storage.Database, _ string) error {
		for _, user := range users {
			if _, err := db.Create(ctx, EntityUser, storage.Record{
				"id":           SeedID(user.Email),
				"name":         user.Name,
				"email":        user.Email,
				"passwordHash": "",
			}); err != nil {
				return err
			}
		}

		return nil
	}
}

func noSeed(context.Context, storage.Database, string) error { return nil }

// Seeder returns the seeder for an application environment and the message
// to report once it has run. Test and unknown environments seed nothing.
func Seeder(environment string) (storage.Seeder, string) {
	switch environment {
	case config.EnvDevelopment:
		return seedUsers(DevelopmentUsers),
			"Database file created. Initial data seeded for development environment."
	case config.EnvProduction:
		return seedUsers(ProductionUsers),
			"Database file created. Initial data seeded for production environment."
	case config.EnvTest:
		return noSeed, "Database file created. Skipping data seeding for test environment."
	default:
		return noSeed, "Database file created. Skipping data seeding - Unknown environment."
	}
}
