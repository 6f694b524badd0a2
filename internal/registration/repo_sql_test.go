package registration_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"registration/internal/registration"
	"registration/internal/store"
)

// setupSQLiteRepo creates a fresh database in a temp dir. The DB is closed
// when the test completes.
func setupSQLiteRepo(t *testing.T) *registration.SQLRepository {
	t.Helper()
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err, "Failed to create test database")
	repo := registration.NewSQLRepository(db, store.SQLiteDialect())
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func sampleRegistration(id string, inline bool) *registration.Registration {
	now := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	proof := registration.PaymentProof{
		Filename:     "payment-" + id + ".png",
		OriginalName: "upi.png",
		ContentType:  "image/png",
		Size:         4,
		Inline:       inline,
	}
	if inline {
		proof.Data = []byte{0x89, 'P', 'N', 'G'}
	} else {
		proof.Location = "uploads/payment-" + id + ".png"
	}
	return &registration.Registration{
		ID:       id,
		TeamName: "Team " + id,
		TeamSize: 2,
		Participants: []registration.Participant{
			{Name: "Asha", Email: "asha@example.com", Phone: "1", College: "X", DepartmentYear: "ECE 2", LinkedIn: "https://linkedin.com/in/asha"},
			{Name: "Ravi", Email: "ravi@example.com", Phone: "2", College: "X", DepartmentYear: "ECE 2"},
		},
		PortfolioURL:      "https://team.dev",
		PaymentScreenshot: proof,
		EntryFee:          100,
		RegistrationDate:  now,
		Status:            registration.StatusPending,
		UpdatedAt:         now,
	}
}

func TestSQLRepository_InsertGet(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	want := sampleRegistration("r1", true)
	require.NoError(t, repo.Insert(ctx, want))

	got, err := repo.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.TeamName, got.TeamName)
	require.Equal(t, want.TeamSize, got.TeamSize)
	require.Equal(t, want.Participants, got.Participants)
	require.Equal(t, want.PortfolioURL, got.PortfolioURL)
	require.Equal(t, want.EntryFee, got.EntryFee)
	require.Equal(t, want.Status, got.Status)
	require.False(t, got.EmailSent)
	require.True(t, want.RegistrationDate.Equal(got.RegistrationDate))
	require.True(t, got.PaymentScreenshot.Inline)
	require.Equal(t, want.PaymentScreenshot.Data, got.PaymentScreenshot.Data)
}

func TestSQLRepository_DuplicateID(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleRegistration("dup", false)))
	err := repo.Insert(ctx, sampleRegistration("dup", false))
	require.ErrorIs(t, err, registration.ErrDuplicateID)
}

func TestSQLRepository_ListOmitsInlineBytes(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, sampleRegistration("a", true)))
	require.NoError(t, repo.Insert(ctx, sampleRegistration("b", false)))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, reg := range all {
		require.Nil(t, reg.PaymentScreenshot.Data, "list must not load payment bytes for %s", reg.ID)
	}
}

func TestSQLRepository_NotFound(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "nope")
	require.ErrorIs(t, err, registration.ErrNotFound)

	_, err = repo.UpdateStatus(ctx, "nope", registration.StatusApproved, time.Now())
	require.ErrorIs(t, err, registration.ErrNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestSQLRepository_UpdateStatus(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	orig := sampleRegistration("s1", false)
	require.NoError(t, repo.Insert(ctx, orig))

	at := orig.UpdatedAt.Add(2 * time.Hour)
	got, err := repo.UpdateStatus(ctx, "s1", registration.StatusRejected, at)
	require.NoError(t, err)
	require.Equal(t, registration.StatusRejected, got.Status)
	require.True(t, at.Equal(got.UpdatedAt))
	require.True(t, orig.RegistrationDate.Equal(got.RegistrationDate))
	require.Equal(t, orig.PaymentScreenshot.Location, got.PaymentScreenshot.Location)

	again, err := repo.UpdateStatus(ctx, "s1", registration.StatusRejected, at)
	require.NoError(t, err)
	require.Equal(t, got.Status, again.Status)
}

func TestSQLRepository_MigrateIdempotent(t *testing.T) {
	repo := setupSQLiteRepo(t)
	require.NoError(t, repo.Migrate(context.Background()))
	require.NoError(t, repo.Ping(context.Background()))
	require.Equal(t, registration.StoreInfo{Backend: "sqlite", Durable: true}, repo.Info())
}

func TestSQLRepository_ServiceOnSQLite(t *testing.T) {
	repo := setupSQLiteRepo(t)
	svc := registration.NewService(repo, nopFiles{}, registration.NewSequentialGenerator(&registration.MemoryCounter{}, ""), nil, nil)
	ctx := context.Background()

	in := registration.NewRegistration{
		TeamName:     "Gamma",
		TeamSize:     1,
		Participants: sampleRegistration("x", false).Participants,
		PortfolioURL: "https://gamma.dev",
		Attachment:   &registration.Attachment{OriginalName: "p.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")},
	}
	reg, err := svc.Register(ctx, in)
	require.NoError(t, err)
	require.Equal(t, "REG-0001", reg.ID)
	require.Len(t, reg.Participants, 1, "participants are cut to the team size")

	got, err := svc.Get(ctx, "REG-0001")
	require.NoError(t, err)
	require.Equal(t, 50, got.EntryFee)
}

type nopFiles struct{}

func (nopFiles) Save(_ context.Context, att *registration.Attachment) (registration.PaymentProof, error) {
	return registration.PaymentProof{Filename: "f", OriginalName: att.OriginalName, ContentType: att.ContentType, Size: att.Size()}, nil
}

func (nopFiles) Delete(context.Context, registration.PaymentProof) error { return nil }
