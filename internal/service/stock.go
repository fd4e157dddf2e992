package service

import (
	"context"

	"github.com/guttosm/tickapi/internal/domain/models"
	"github.com/guttosm/tickapi/internal/storage"
)

// StockService is the application layer between the HTTP handlers and storage.
type StockService interface {
	GetStockData(ctx context.Context, ticker string) ([]models.StockRow, error)
	GetAvailableTickers(ctx context.Context) []string
}

type stockService struct {
	repo    storage.StockRepository
	tickers []string
}

// NewStockService builds the service. tickers is the advertised list; it is the
// same list the sync job keeps populated, so it does not come from storage.
func NewStockService(repo storage.StockRepository, tickers []string) StockService {
	return &stockService{repo: repo, tickers: append([]string(nil), tickers...)}
}

// GetStockData forwards to the repository unchanged.
func (s *stockService) GetStockData(ctx context.Context, ticker string) ([]models.StockRow, error) {
	return s.repo.FindByTicker(ctx, ticker)
}

func (s *stockService) GetAvailableTickers(_ context.Context) []string {
	out := make([]string, len(s.tickers))
	copy(out, s.tickers)
	return out
}
