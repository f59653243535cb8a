package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attest/internal/credential/handler/mocks"
	"attest/internal/credential/models"
	"attest/internal/ledger/txnbuild"
	"attest/internal/platform/middleware"
	dErrors "attest/pkg/domain-errors"
)

const testOperator = "REGISTRAR-ADDRESS"

type HandlerSuite struct {
	suite.Suite
	router      http.Handler
	ctrl        *gomock.Controller
	mockService *mocks.MockService
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(s.mockService, logger)

	r := chi.NewRouter()
	// Simulate the operator auth middleware the production router applies.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.ContextKeyOperator, testOperator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(r)
	h.RegisterPublic(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestIssue_Success() {
	s.mockService.EXPECT().
		Issue(gomock.Any(), testOperator, models.IssueRequest{
			Name:        "BSc Computer Science",
			ShortCode:   "BSC-CS",
			MetadataURI: "ipfs://QmTestDocumentHash",
		}).
		Return(&models.IssueResult{CredentialID: 101, TxID: "TX-1", ConfirmedRound: 42}, nil)

	rec := s.do(http.MethodPost, "/credentials", map[string]string{
		"name":         "BSc Computer Science",
		"short_code":   "BSC-CS",
		"metadata_uri": "ipfs://QmTestDocumentHash",
	})

	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var result models.IssueResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(s.T(), uint64(101), result.CredentialID)
	assert.Equal(s.T(), "TX-1", result.TxID)
}

func (s *HandlerSuite) TestIssue_InvalidJSON() {
	req := httptest.NewRequest(http.MethodPost, "/credentials",
		bytes.NewReader([]byte("not valid json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code,
		"expected 400 for invalid JSON")
}

func (s *HandlerSuite) TestIssue_ServiceErrorMapsToStatus() {
	s.mockService.EXPECT().
		Issue(gomock.Any(), testOperator, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeUnauthorized, "operator is not the credential authority admin"))

	rec := s.do(http.MethodPost, "/credentials", map[string]string{
		"name": "BSc Computer Science", "short_code": "BSC-CS",
	})

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestTransfer_Success() {
	s.mockService.EXPECT().
		Transfer(gomock.Any(), testOperator, uint64(101), "HOLDER-ADDRESS").
		Return(&models.TransferResult{CredentialID: 101, OwnerAddress: "HOLDER-ADDRESS", TxID: "TX-2"}, nil)

	rec := s.do(http.MethodPost, "/credentials/101/transfer", map[string]string{
		"holder_address": "HOLDER-ADDRESS",
	})

	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var result models.TransferResult
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(s.T(), "HOLDER-ADDRESS", result.OwnerAddress)
}

func (s *HandlerSuite) TestTransfer_NotOptedIn() {
	s.mockService.EXPECT().
		Transfer(gomock.Any(), testOperator, uint64(101), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotOptedIn, "account has not opted in"))

	rec := s.do(http.MethodPost, "/credentials/101/transfer", map[string]string{
		"holder_address": "HOLDER-ADDRESS",
	})

	assert.Equal(s.T(), http.StatusPreconditionFailed, rec.Code)
}

func (s *HandlerSuite) TestTransfer_InvalidID() {
	rec := s.do(http.MethodPost, "/credentials/0/transfer", map[string]string{
		"holder_address": "HOLDER-ADDRESS",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/credentials/abc/transfer", map[string]string{
		"holder_address": "HOLDER-ADDRESS",
	})
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestRevoke_Success() {
	s.mockService.EXPECT().
		Revoke(gomock.Any(), testOperator, uint64(101)).
		Return(&models.RevokeResult{CredentialID: 101, TxID: "TX-3"}, nil)

	rec := s.do(http.MethodPost, "/credentials/101/revoke", nil)

	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestRevoke_AlreadyRevoked() {
	s.mockService.EXPECT().
		Revoke(gomock.Any(), testOperator, uint64(101)).
		Return(nil, dErrors.New(dErrors.CodeWrongState, "credential 101 is already revoked"))

	rec := s.do(http.MethodPost, "/credentials/101/revoke", nil)

	assert.Equal(s.T(), http.StatusConflict, rec.Code)
}

func (s *HandlerSuite) TestOptIn_Success() {
	signed := []byte("holder-signed-blob")
	s.mockService.EXPECT().
		SubmitOptIn(gomock.Any(), uint64(101), "HOLDER-ADDRESS", signed).
		Return(&models.OptInResult{CredentialID: 101, Address: "HOLDER-ADDRESS", TxID: "TX-4"}, nil)

	rec := s.do(http.MethodPost, "/credentials/101/optin", map[string]string{
		"address":    "HOLDER-ADDRESS",
		"signed_txn": base64.StdEncoding.EncodeToString(signed),
	})

	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestOptInBuild_Success() {
	s.mockService.EXPECT().
		BuildOptIn(gomock.Any(), uint64(101), "HOLDER-ADDRESS").
		Return(&txnbuild.Group{
			Operations: []txnbuild.Operation{{Type: txnbuild.OpAssetOptIn, Sender: "HOLDER-ADDRESS", AssetID: 101}},
		}, nil)

	rec := s.do(http.MethodGet, "/credentials/101/optin?address=HOLDER-ADDRESS", nil)

	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var group txnbuild.Group
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &group))
	s.Require().Len(group.Operations, 1)
	assert.Equal(s.T(), txnbuild.OpAssetOptIn, group.Operations[0].Type)
}

func (s *HandlerSuite) TestOptInBuild_RequiresAddress() {
	rec := s.do(http.MethodGet, "/credentials/101/optin", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestOptIn_RejectsBadBase64() {
	rec := s.do(http.MethodPost, "/credentials/101/optin", map[string]string{
		"address":    "HOLDER-ADDRESS",
		"signed_txn": "%%not-base64%%",
	})

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestGet_Success() {
	s.mockService.EXPECT().
		Get(gomock.Any(), uint64(101)).
		Return(&models.Credential{ID: 101, State: models.StateMinted, ShortCode: "BSC-CS"}, nil)

	rec := s.do(http.MethodGet, "/credentials/101", nil)

	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var credential models.Credential
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &credential))
	assert.Equal(s.T(), models.StateMinted, credential.State)
}

func (s *HandlerSuite) TestGet_NotFound() {
	s.mockService.EXPECT().
		Get(gomock.Any(), uint64(404)).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "credential 404 does not exist"))

	rec := s.do(http.MethodGet, "/credentials/404", nil)

	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestList_PassesFilter() {
	s.mockService.EXPECT().
		List(gomock.Any(), &models.RecordFilter{ShortCode: "BSC-CS", Limit: 10, Offset: 5}).
		Return([]*models.Record{{CredentialID: 101}}, nil)

	rec := s.do(http.MethodGet, "/credentials?short_code=BSC-CS&limit=10&offset=5", nil)

	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var body struct {
		Credentials []*models.Record `json:"credentials"`
		Count       int              `json:"count"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(s.T(), 1, body.Count)
}

func (s *HandlerSuite) TestList_RejectsNegativeLimit() {
	rec := s.do(http.MethodGet, "/credentials?limit=-1", nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}
