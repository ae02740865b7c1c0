package binance

import (
	"context"
	"errors"
	"testing"

	spot "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"tradeledger/configs"
	"tradeledger/internal/domain"
)

// fakeClient implements Client for testing
type fakeClient struct {
	leverage   *fakeLeverageService
	order      *fakeOrderService
	prices     *fakePricesService
	futuresAcc *fakeFuturesAccountService
	spotAcc    *fakeSpotAccountService
	serverTime *fakeServerTimeService
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		leverage:   &fakeLeverageService{},
		order:      &fakeOrderService{},
		prices:     &fakePricesService{},
		futuresAcc: &fakeFuturesAccountService{},
		spotAcc:    &fakeSpotAccountService{},
		serverTime: &fakeServerTimeService{},
	}
}

func (f *fakeClient) NewChangeLeverageService() ChangeLeverageService { return f.leverage }
func (f *fakeClient) NewCreateOrderService() CreateOrderService       { return f.order }
func (f *fakeClient) NewListPricesService() ListPricesService         { return f.prices }
func (f *fakeClient) NewFuturesAccountService() FuturesAccountService { return f.futuresAcc }
func (f *fakeClient) NewSpotAccountService() SpotAccountService       { return f.spotAcc }
func (f *fakeClient) NewSetServerTimeService() SetServerTimeService   { return f.serverTime }

type fakeLeverageService struct {
	symbol   string
	leverage int
	err      error
}

func (s *fakeLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.symbol = symbol
	return s
}

func (s *fakeLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.leverage = leverage
	return s
}

func (s *fakeLeverageService) Do(_ context.Context) (*futures.SymbolLeverage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &futures.SymbolLeverage{Symbol: s.symbol, Leverage: s.leverage}, nil
}

type fakeOrderService struct {
	symbol    string
	side      futures.SideType
	orderType futures.OrderType
	quantity  string
	price     string
	tif       futures.TimeInForceType
	response  *futures.CreateOrderResponse
	err       error
}

func (s *fakeOrderService) Symbol(symbol string) CreateOrderService {
	s.symbol = symbol
	return s
}

func (s *fakeOrderService) Side(side futures.SideType) CreateOrderService {
	s.side = side
	return s
}

func (s *fakeOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.orderType = orderType
	return s
}

func (s *fakeOrderService) Quantity(quantity string) CreateOrderService {
	s.quantity = quantity
	return s
}

func (s *fakeOrderService) Price(price string) CreateOrderService {
	s.price = price
	return s
}

func (s *fakeOrderService) TimeInForce(tif futures.TimeInForceType) CreateOrderService {
	s.tif = tif
	return s
}

func (s *fakeOrderService) Do(_ context.Context) (*futures.CreateOrderResponse, error) {
	return s.response, s.err
}

type fakePricesService struct {
	symbol string
	prices []*futures.SymbolPrice
	err    error
}

func (s *fakePricesService) Symbol(symbol string) ListPricesService {
	s.symbol = symbol
	return s
}

func (s *fakePricesService) Do(_ context.Context) ([]*futures.SymbolPrice, error) {
	return s.prices, s.err
}

type fakeFuturesAccountService struct {
	account *futures.Account
	errs    []error
	calls   int
}

func (s *fakeFuturesAccountService) Do(_ context.Context) (*futures.Account, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return s.account, nil
}

type fakeSpotAccountService struct {
	account *spot.Account
	err     error
}

func (s *fakeSpotAccountService) Do(_ context.Context) (*spot.Account, error) {
	return s.account, s.err
}

type fakeServerTimeService struct {
	calls int
}

func (s *fakeServerTimeService) Do(_ context.Context) (int64, error) {
	s.calls++
	return 250, nil
}

type VenueTestSuite struct {
	suite.Suite
	client *fakeClient
	venue  *Venue
}

func TestVenueSuite(t *testing.T) {
	suite.Run(t, new(VenueTestSuite))
}

func (suite *VenueTestSuite) SetupTest() {
	suite.client = newFakeClient()
	suite.venue = NewVenue(suite.client, configs.BinanceConfig{RateLimit: 1000, RateBurst: 1000, MaxRetries: 3}, zap.NewNop())
}

func (suite *VenueTestSuite) TestSetLeverage() {
	err := suite.venue.SetLeverage(context.Background(), "BTCUSDT", 125)
	suite.NoError(err)
	suite.Equal("BTCUSDT", suite.client.leverage.symbol)
	suite.Equal(125, suite.client.leverage.leverage)
}

func (suite *VenueTestSuite) TestSetLeverageWrapsVenueError() {
	suite.client.leverage.err = errors.New("boom")
	err := suite.venue.SetLeverage(context.Background(), "BTCUSDT", 125)
	suite.ErrorIs(err, domain.ErrVenue)
}

func (suite *VenueTestSuite) TestPlaceMarketOrderTruncatesQuantity() {
	suite.client.order.response = &futures.CreateOrderResponse{OrderID: 42, AvgPrice: "101.5"}

	res, err := suite.venue.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     domain.SideSell,
		Type:     domain.OrderTypeMarket,
		Quantity: 0.01299,
	})
	suite.Require().NoError(err)
	suite.Equal(int64(42), res.OrderID)
	suite.Equal(101.5, res.AvgPrice)
	suite.Equal("0.012", suite.client.order.quantity)
	suite.Equal(futures.SideTypeSell, suite.client.order.side)
	suite.Equal(futures.OrderTypeMarket, suite.client.order.orderType)
}

func (suite *VenueTestSuite) TestPlaceLimitOrder() {
	suite.client.order.response = &futures.CreateOrderResponse{OrderID: 7}
	price := 100.25

	_, err := suite.venue.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     domain.SideBuy,
		Type:     domain.OrderTypeLimit,
		Quantity: 1,
		Price:    &price,
	})
	suite.Require().NoError(err)
	suite.Equal(futures.OrderTypeLimit, suite.client.order.orderType)
	suite.Equal("100.25", suite.client.order.price)
	suite.Equal(futures.TimeInForceTypeGTC, suite.client.order.tif)
}

func (suite *VenueTestSuite) TestPlaceOrderRejectsDustQuantity() {
	_, err := suite.venue.PlaceOrder(context.Background(), domain.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     domain.SideBuy,
		Quantity: 0.0004,
	})
	suite.ErrorIs(err, domain.ErrValidation)
}

func (suite *VenueTestSuite) TestCurrentPrice() {
	suite.client.prices.prices = []*futures.SymbolPrice{{Symbol: "BTCUSDT", Price: "64000.10"}}

	price, err := suite.venue.CurrentPrice(context.Background(), "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(64000.10, price)
	suite.Equal("BTCUSDT", suite.client.prices.symbol)
}

func (suite *VenueTestSuite) TestCurrentPriceMissingSymbol() {
	suite.client.prices.prices = []*futures.SymbolPrice{}
	_, err := suite.venue.CurrentPrice(context.Background(), "ETHUSDT")
	suite.ErrorIs(err, domain.ErrVenue)
}

func (suite *VenueTestSuite) TestBalances() {
	suite.client.futuresAcc.account = &futures.Account{Assets: []*futures.AccountAsset{
		{Asset: "BNB", WalletBalance: "3"},
		{Asset: "USDT", WalletBalance: "150.5"},
	}}
	suite.client.spotAcc.account = &spot.Account{Balances: []spot.Balance{{Asset: "USDT", Free: "49.5"}}}

	b, err := suite.venue.Balances(context.Background())
	suite.Require().NoError(err)
	suite.Equal(150.5, b.Futures)
	suite.Equal(49.5, b.Spot)
	suite.Equal(200.0, b.Total)
}

func (suite *VenueTestSuite) TestBalancesRetriesOnTimestampError() {
	tsErr := &common.APIError{Code: -1021, Message: "Timestamp for this request is outside of the recvWindow."}
	suite.client.futuresAcc.errs = []error{tsErr, tsErr}
	suite.client.futuresAcc.account = &futures.Account{}
	suite.client.spotAcc.account = &spot.Account{}

	b, err := suite.venue.Balances(context.Background())
	suite.Require().NoError(err)
	suite.Equal(0.0, b.Total)
	suite.Equal(3, suite.client.futuresAcc.calls)
	suite.Equal(2, suite.client.serverTime.calls)
}

func (suite *VenueTestSuite) TestBalancesGivesUpAfterMaxRetries() {
	tsErr := &common.APIError{Code: -1021}
	suite.client.futuresAcc.errs = []error{tsErr, tsErr, tsErr, tsErr, tsErr}

	_, err := suite.venue.Balances(context.Background())
	suite.ErrorIs(err, domain.ErrVenue)
	suite.Equal(4, suite.client.futuresAcc.calls)
	suite.Equal(3, suite.client.serverTime.calls)
}

func (suite *VenueTestSuite) TestBalancesDoesNotRetryOtherErrors() {
	suite.client.futuresAcc.errs = []error{&common.APIError{Code: -2015}}

	_, err := suite.venue.Balances(context.Background())
	suite.ErrorIs(err, domain.ErrVenue)
	suite.Equal(1, suite.client.futuresAcc.calls)
	suite.Equal(0, suite.client.serverTime.calls)
}
