//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attest/internal/credential/models"
	"attest/internal/credential/store"
	"attest/pkg/platform/sentinel"
	"attest/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "credentials")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(id uint64, issuedAt time.Time) *models.Record {
	return &models.Record{
		CredentialID: id,
		Name:         "BSc Computer Science",
		ShortCode:    "BSC-CS",
		MetadataURI:  "ipfs://QmTestDocumentHash",
		IssuedBy:     "REGISTRAR",
		IssueTxID:    "TX-ISSUE",
		IssuedAt:     issuedAt,
	}
}

func (s *PostgresStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	issuedAt := time.Now().UTC().Truncate(time.Microsecond)

	err := s.store.Save(ctx, s.newRecord(101, issuedAt))
	s.Require().NoError(err)

	record, err := s.store.FindByID(ctx, 101)
	s.Require().NoError(err)
	s.Equal(uint64(101), record.CredentialID)
	s.Equal("BSc Computer Science", record.Name)
	s.Equal("BSC-CS", record.ShortCode)
	s.Equal("ipfs://QmTestDocumentHash", record.MetadataURI)
	s.Equal("REGISTRAR", record.IssuedBy)
	s.Equal("issued", record.LastAction)
	s.Equal("TX-ISSUE", record.LastTxID)
	s.WithinDuration(issuedAt, record.IssuedAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestSaveDuplicateReturnsConflict() {
	ctx := context.Background()

	err := s.store.Save(ctx, s.newRecord(102, time.Now()))
	s.Require().NoError(err)

	err = s.store.Save(ctx, s.newRecord(102, time.Now()))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestFindMissingReturnsNotFound() {
	_, err := s.store.FindByID(context.Background(), 999)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSaveNullMetadataURI() {
	ctx := context.Background()
	record := s.newRecord(103, time.Now())
	record.MetadataURI = ""

	s.Require().NoError(s.store.Save(ctx, record))

	found, err := s.store.FindByID(ctx, 103)
	s.Require().NoError(err)
	s.Empty(found.MetadataURI)
}

func (s *PostgresStoreSuite) TestListFiltersAndOrders() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	first := s.newRecord(201, base.Add(-2*time.Hour))
	second := s.newRecord(202, base.Add(-1*time.Hour))
	third := s.newRecord(203, base)
	third.ShortCode = "MSC-DS"

	for _, record := range []*models.Record{first, second, third} {
		s.Require().NoError(s.store.Save(ctx, record))
	}

	records, err := s.store.List(ctx, nil)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	// Newest first
	s.Equal(uint64(203), records[0].CredentialID)
	s.Equal(uint64(202), records[1].CredentialID)
	s.Equal(uint64(201), records[2].CredentialID)

	records, err = s.store.List(ctx, &models.RecordFilter{ShortCode: "BSC-CS"})
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	records, err = s.store.List(ctx, &models.RecordFilter{Limit: 1, Offset: 1})
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(uint64(202), records[0].CredentialID)
}

func (s *PostgresStoreSuite) TestRecordAction() {
	ctx := context.Background()

	s.Require().NoError(s.store.Save(ctx, s.newRecord(301, time.Now())))

	err := s.store.RecordAction(ctx, 301, "transferred", "TX-TRANSFER")
	s.Require().NoError(err)

	record, err := s.store.FindByID(ctx, 301)
	s.Require().NoError(err)
	s.Equal("transferred", record.LastAction)
	s.Equal("TX-TRANSFER", record.LastTxID)
	s.True(record.UpdatedAt.After(record.IssuedAt))
}

func (s *PostgresStoreSuite) TestRecordActionMissingReturnsNotFound() {
	err := s.store.RecordAction(context.Background(), 999, "revoked", "TX-REVOKE")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
