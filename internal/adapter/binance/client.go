package binance

import (
	"context"
	"net/http"
	"time"

	spot "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// Service interfaces over the go-binance builders, so the venue can be tested without the network

// ChangeLeverageService sets the initial leverage of a futures symbol
type ChangeLeverageService interface {
	Symbol(symbol string) ChangeLeverageService
	Leverage(leverage int) ChangeLeverageService
	Do(ctx context.Context) (*futures.SymbolLeverage, error)
}

// CreateOrderService places a futures order
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side futures.SideType) CreateOrderService
	Type(orderType futures.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	Price(price string) CreateOrderService
	TimeInForce(tif futures.TimeInForceType) CreateOrderService
	Do(ctx context.Context) (*futures.CreateOrderResponse, error)
}

// ListPricesService returns the latest mark of a symbol
type ListPricesService interface {
	Symbol(symbol string) ListPricesService
	Do(ctx context.Context) ([]*futures.SymbolPrice, error)
}

// FuturesAccountService returns the futures wallet
type FuturesAccountService interface {
	Do(ctx context.Context) (*futures.Account, error)
}

// SpotAccountService returns the spot wallet
type SpotAccountService interface {
	Do(ctx context.Context) (*spot.Account, error)
}

// SetServerTimeService resyncs the client clock offset with the exchange
type SetServerTimeService interface {
	Do(ctx context.Context) (int64, error)
}

// Client abstracts the futures and spot clients
type Client interface {
	NewChangeLeverageService() ChangeLeverageService
	NewCreateOrderService() CreateOrderService
	NewListPricesService() ListPricesService
	NewFuturesAccountService() FuturesAccountService
	NewSpotAccountService() SpotAccountService
	NewSetServerTimeService() SetServerTimeService
}

// NewClient builds the production client. Testnet switches both futures and spot endpoints.
func NewClient(apiKey, secretKey string, testnet bool) Client {
	futures.UseTestnet = testnet
	spot.UseTestnet = testnet

	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	fc := futures.NewClient(apiKey, secretKey)
	fc.HTTPClient = httpClient
	sc := spot.NewClient(apiKey, secretKey)
	sc.HTTPClient = httpClient

	return &realClient{futures: fc, spot: sc}
}

type realClient struct {
	futures *futures.Client
	spot    *spot.Client
}

func (r *realClient) NewChangeLeverageService() ChangeLeverageService {
	return &realChangeLeverageService{service: r.futures.NewChangeLeverageService()}
}

func (r *realClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.futures.NewCreateOrderService()}
}

func (r *realClient) NewListPricesService() ListPricesService {
	return &realListPricesService{service: r.futures.NewListPricesService()}
}

func (r *realClient) NewFuturesAccountService() FuturesAccountService {
	return &realFuturesAccountService{service: r.futures.NewGetAccountService()}
}

func (r *realClient) NewSpotAccountService() SpotAccountService {
	return &realSpotAccountService{service: r.spot.NewGetAccountService()}
}

func (r *realClient) NewSetServerTimeService() SetServerTimeService {
	return &realSetServerTimeService{futures: r.futures, spot: r.spot}
}

type realChangeLeverageService struct {
	service *futures.ChangeLeverageService
}

func (s *realChangeLeverageService) Symbol(symbol string) ChangeLeverageService {
	s.service = s.service.Symbol(symbol)
	return s
}

func (s *realChangeLeverageService) Leverage(leverage int) ChangeLeverageService {
	s.service = s.service.Leverage(leverage)
	return s
}

func (s *realChangeLeverageService) Do(ctx context.Context) (*futures.SymbolLeverage, error) {
	return s.service.Do(ctx)
}

type realCreateOrderService struct {
	service *futures.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)
	return s
}

func (s *realCreateOrderService) Side(side futures.SideType) CreateOrderService {
	s.service = s.service.Side(side)
	return s
}

func (s *realCreateOrderService) Type(orderType futures.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)
	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)
	return s
}

func (s *realCreateOrderService) Price(price string) CreateOrderService {
	s.service = s.service.Price(price)
	return s
}

func (s *realCreateOrderService) TimeInForce(tif futures.TimeInForceType) CreateOrderService {
	s.service = s.service.TimeInForce(tif)
	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*futures.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realListPricesService struct {
	service *futures.ListPricesService
}

func (s *realListPricesService) Symbol(symbol string) ListPricesService {
	s.service = s.service.Symbol(symbol)
	return s
}

func (s *realListPricesService) Do(ctx context.Context) ([]*futures.SymbolPrice, error) {
	return s.service.Do(ctx)
}

type realFuturesAccountService struct {
	service *futures.GetAccountService
}

func (s *realFuturesAccountService) Do(ctx context.Context) (*futures.Account, error) {
	return s.service.Do(ctx)
}

type realSpotAccountService struct {
	service *spot.GetAccountService
}

func (s *realSpotAccountService) Do(ctx context.Context) (*spot.Account, error) {
	return s.service.Do(ctx)
}

// realSetServerTimeService resyncs both clients; the futures offset is reported
type realSetServerTimeService struct {
	futures *futures.Client
	spot    *spot.Client
}

func (s *realSetServerTimeService) Do(ctx context.Context) (int64, error) {
	offset, err := s.futures.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return 0, err
	}
	if _, err := s.spot.NewSetServerTimeService().Do(ctx); err != nil {
		return 0, err
	}
	return offset, nil
}
