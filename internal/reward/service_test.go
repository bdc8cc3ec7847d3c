package reward

//go:generate mockgen -destination=mocks/credential_mock.go -package=mocks greenhop/internal/credential Issuer
//go:generate mockgen -destination=mocks/ledger_mock.go -package=mocks greenhop/internal/ledger Service
//go:generate mockgen -destination=mocks/events_mock.go -package=mocks greenhop/internal/events Publisher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"greenhop/internal/credential"
	"greenhop/internal/events"
	"greenhop/internal/reward/mocks"
	id "greenhop/pkg/domain"
	dErrors "greenhop/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl            *gomock.Controller
	mockCredentials *mocks.MockIssuer
	mockLedger      *mocks.MockService
	mockPublisher   *mocks.MockPublisher
	service         *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockCredentials = mocks.NewMockIssuer(s.ctrl)
	s.mockLedger = mocks.NewMockService(s.ctrl)
	s.mockPublisher = mocks.NewMockPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(
		s.mockCredentials,
		s.mockLedger,
		WithLogger(logger),
		WithPublisher(s.mockPublisher),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func testRequest() Request {
	return Request{
		TripID:          id.NewTripID(),
		Account:         id.MustAccountID("0.0.12345"),
		TripType:        "cycling",
		DistanceMeters:  2400,
		DurationMinutes: 12,
		CO2SavedGrams:   288,
		Amount:          3,
		CompletedAt:     1700000900000,
		IdempotencyKey:  "abc123",
	}
}

func verifiedCredential() *credential.Credential {
	return &credential.Credential{
		ID:       id.CredentialID("urn:credential:abc"),
		PolicyID: "policy-7",
		Status:   credential.StatusVerified,
		IssuedAt: time.Now(),
	}
}

func (s *ServiceSuite) TestIssueSuccess() {
	req := testRequest()

	gomock.InOrder(
		s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, claim credential.Claim) (*credential.Credential, error) {
				s.Equal(req.TripID, claim.TripID)
				s.Equal("0.0.12345", claim.Account)
				s.Equal("cycling", claim.TripType)
				s.Equal(int64(288), claim.CO2SavedGrams)
				return verifiedCredential(), nil
			}),
		s.mockLedger.EXPECT().Mint(gomock.Any(), int64(3), gomock.Any()).
			Return(id.TransactionID("0.0.2@1700000901.000000001"), nil),
		s.mockLedger.EXPECT().Transfer(gomock.Any(), req.Account, int64(3)).
			Return(id.TransactionID("0.0.2@1700000902.000000002"), nil),
	)

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(id.CredentialID("urn:credential:abc"), receipt.CredentialID)
	s.Equal(id.TransactionID("0.0.2@1700000901.000000001"), receipt.MintTxID)
	s.Equal(id.TransactionID("0.0.2@1700000902.000000002"), receipt.TransferTxID)
	s.Equal(int64(3), receipt.Amount)
}

func (s *ServiceSuite) TestIssueZeroAmountSkipsLedger() {
	req := testRequest()
	req.Amount = 0

	s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(verifiedCredential(), nil)

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().NoError(err)
	s.Equal(id.CredentialID("urn:credential:abc"), receipt.CredentialID)
	s.True(receipt.MintTxID.IsNil())
	s.True(receipt.TransferTxID.IsNil())
}

func (s *ServiceSuite) TestIssueCredentialFailureAbortsBeforeMint() {
	req := testRequest()

	s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeCredentialIssuance, "authority unavailable"))

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().Error(err)
	s.Nil(receipt)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialIssuance))
}

func (s *ServiceSuite) TestIssueNonVerifiedCredentialRejected() {
	req := testRequest()
	cred := verifiedCredential()
	cred.Status = credential.StatusRevoked

	s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(cred, nil)

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().Error(err)
	s.Nil(receipt)
	s.True(dErrors.HasCode(err, dErrors.CodeCredentialIssuance))
}

func (s *ServiceSuite) TestIssueMintFailureAbortsBeforeTransfer() {
	req := testRequest()

	gomock.InOrder(
		s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(verifiedCredential(), nil),
		s.mockLedger.EXPECT().Mint(gomock.Any(), int64(3), gomock.Any()).
			Return(id.TransactionID(""), dErrors.New(dErrors.CodeMintFailed, "supply key rejected")),
	)

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().Error(err)
	s.Nil(receipt)
	s.True(dErrors.HasCode(err, dErrors.CodeMintFailed))
}

func (s *ServiceSuite) TestIssueTransferFailureReturnsPartialReceipt() {
	req := testRequest()

	gomock.InOrder(
		s.mockCredentials.EXPECT().Issue(gomock.Any(), gomock.Any()).Return(verifiedCredential(), nil),
		s.mockLedger.EXPECT().Mint(gomock.Any(), int64(3), gomock.Any()).
			Return(id.TransactionID("0.0.2@1700000901.000000001"), nil),
		s.mockLedger.EXPECT().Transfer(gomock.Any(), req.Account, int64(3)).
			Return(id.TransactionID(""), dErrors.New(dErrors.CodeTransferFailed, "account not associated")),
	)
	s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event events.Event) error {
			s.Equal(events.TypeReconciliationRequired, event.Type)
			s.Equal(req.TripID, event.TripID)
			s.Equal(id.TransactionID("0.0.2@1700000901.000000001"), event.MintTxID)
			return nil
		})

	receipt, err := s.service.Issue(context.Background(), req)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailed))

	// The partial receipt keeps the credential and mint transaction so the
	// caller can persist them for reconciliation.
	s.Require().NotNil(receipt)
	s.Equal(id.CredentialID("urn:credential:abc"), receipt.CredentialID)
	s.Equal(id.TransactionID("0.0.2@1700000901.000000001"), receipt.MintTxID)
	s.True(receipt.TransferTxID.IsNil())
}
