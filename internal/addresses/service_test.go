package addresses

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhannt26/e-commerce-website-v3/internal/testdb"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	pkgerrors "github.com/nhannt26/e-commerce-website-v3/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := testdb.Open(t)
	svc, err := NewService(NewRepository(conn), db.FromGorm(conn))
	require.NoError(t, err)
	return svc
}

func input(name string) CreateInput {
	return CreateInput{
		FullName:   name,
		Phone:      "0901234567",
		Street:     "12 Nguyen Hue",
		City:       "Ho Chi Minh City",
		PostalCode: "700000",
		Country:    "Vietnam",
	}
}

func defaults(list []AddressDTO) []uuid.UUID {
	var out []uuid.UUID
	for _, a := range list {
		if a.IsDefault {
			out = append(out, a.ID)
		}
	}
	return out
}

func TestCreateKeepsSingleDefault(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, input("An"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "first address becomes default")

	second, err := svc.Create(ctx, userID, input("Binh"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third := input("Chi")
	third.IsDefault = true
	created, err := svc.Create(ctx, userID, third)
	require.NoError(t, err)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []uuid.UUID{created.ID}, defaults(list))
	assert.Equal(t, created.ID, list[0].ID, "default listed first")
}

func TestCreateRequiresFields(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	in := input("An")
	in.Street = "  "
	_, err := svc.Create(context.Background(), uuid.New(), in)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestUpdateAndSetDefault(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	first, err := svc.Create(ctx, userID, input("An"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, input("Binh"))
	require.NoError(t, err)

	city := "Da Nang"
	updated, err := svc.Update(ctx, userID, second.ID, UpdateInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Da Nang", updated.City)
	assert.Equal(t, "Binh", updated.FullName)

	_, err = svc.SetDefault(ctx, userID, second.ID)
	require.NoError(t, err)
	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second.ID}, defaults(list))

	off := false
	_, err = svc.Update(ctx, userID, second.ID, UpdateInput{IsDefault: &off})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = svc.SetDefault(ctx, uuid.New(), first.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "other users cannot touch the entry, got %v", err)
}

func TestDeletePromotesOldestAndKeepsLastAddress(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	first, err := svc.Create(ctx, userID, input("An"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, input("Binh"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, userID, first.ID))
	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, second.ID, list[0].ID)

	err = svc.Delete(ctx, userID, second.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestResolveReturnsShippingAddress(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()
	created, err := svc.Create(ctx, userID, input("An"))
	require.NoError(t, err)

	shipping, err := svc.Resolve(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "An", shipping.FullName)
	assert.Equal(t, "700000", shipping.PostalCode)
	assert.Empty(t, shipping.MissingFields())

	_, err = svc.Resolve(ctx, uuid.New(), created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}
