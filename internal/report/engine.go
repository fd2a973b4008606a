// Package report computes the read-only aggregations behind the dashboard
// and report screens: low stock, best sellers, monthly revenue. Results are
// cached briefly; sale writes invalidate the whole report namespace.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"lumapos/backend/internal/cache"
	"lumapos/backend/internal/domain"
	"lumapos/backend/internal/store"
)

const (
	keyPrefix = "pos:report:"

	// DefaultBestSellerWindow is the trailing window for best-seller ranking.
	DefaultBestSellerWindow = 30 * 24 * time.Hour
	// DefaultBestSellerTopN caps the best-seller list.
	DefaultBestSellerTopN = 5
)

type Engine struct {
	repo     store.Repository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}
	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// InvalidateAll drops every cached report. Called after each checkout and
// after imports so dashboards do not serve stale aggregates.
func (e *Engine) InvalidateAll(ctx context.Context) error {
	return e.cache.Invalidate(ctx, keyPrefix)
}

func (e *Engine) Dashboard(ctx context.Context, now time.Time) (domain.DashboardStats, error) {
	now = now.UTC()
	key := fmt.Sprintf("%sdashboard:%s", keyPrefix, now.Format("2006-01-02"))

	var stats domain.DashboardStats
	if ok, err := e.cached(ctx, key, &stats); err == nil && ok {
		return stats, nil
	}

	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return stats, err
	}
	customers, err := e.repo.ListCustomers(ctx)
	if err != nil {
		return stats, err
	}
	cfg, err := e.repo.GetStoreConfig(ctx)
	if err != nil {
		return stats, err
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todaySales, err := e.repo.ListSales(ctx, store.SaleFilter{
		From: dayStart,
		To:   dayStart.AddDate(0, 0, 1),
	})
	if err != nil {
		return stats, err
	}

	stats.TotalProducts = len(products)
	stats.TotalCustomers = len(customers)
	for _, p := range products {
		if p.StockQty <= p.EffectiveMinStock(cfg.DefaultMinStock) {
			stats.LowStockCount++
		}
	}
	stats.SalesToday = len(todaySales)
	for _, sale := range todaySales {
		stats.RevenueTodayCents += sale.TotalCents
	}

	e.put(ctx, key, stats)
	return stats, nil
}

func (e *Engine) BestSellers(ctx context.Context, now time.Time, window time.Duration, topN int) ([]domain.BestSeller, error) {
	if window <= 0 {
		window = DefaultBestSellerWindow
	}
	if topN < 1 {
		topN = DefaultBestSellerTopN
	}
	now = now.UTC()
	key := fmt.Sprintf("%sbestsellers:%s:%d:%d", keyPrefix, now.Format("2006-01-02"), int(window.Hours()), topN)

	var cached []domain.BestSeller
	if ok, err := e.cached(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	sales, err := e.repo.ListSales(ctx, store.SaleFilter{From: now.Add(-window), To: now})
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*domain.BestSeller)
	for _, sale := range sales {
		for _, item := range sale.Items {
			entry, ok := byProduct[item.ProductID]
			if !ok {
				entry = &domain.BestSeller{
					ProductID: item.ProductID,
					Code:      item.Code,
					Name:      item.Name,
				}
				byProduct[item.ProductID] = entry
			}
			entry.QtySold += item.Qty
			entry.RevenueCents += item.LineTotalCents
		}
	}

	ranked := make([]domain.BestSeller, 0, len(byProduct))
	for _, entry := range byProduct {
		ranked = append(ranked, *entry)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].QtySold == ranked[j].QtySold {
			return ranked[i].RevenueCents > ranked[j].RevenueCents
		}
		return ranked[i].QtySold > ranked[j].QtySold
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	e.put(ctx, key, ranked)
	return ranked, nil
}

// LowStock lists products at or below their effective minimum, per-product
// override first, store default otherwise.
func (e *Engine) LowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	cfg, err := e.repo.GetStoreConfig(ctx)
	if err != nil {
		return nil, err
	}
	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LowStockItem, 0, 16)
	for _, p := range products {
		min := p.EffectiveMinStock(cfg.DefaultMinStock)
		if p.StockQty > min {
			continue
		}
		items = append(items, domain.LowStockItem{
			Product:  p,
			MinStock: min,
			Depleted: p.StockQty == 0,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Product.StockQty == items[j].Product.StockQty {
			return items[i].Product.Name < items[j].Product.Name
		}
		return items[i].Product.StockQty < items[j].Product.StockQty
	})
	return items, nil
}

func (e *Engine) MonthlyRevenue(ctx context.Context, now time.Time, months int) ([]domain.MonthlyRevenueEntry, error) {
	if months < 1 {
		months = 12
	}
	now = now.UTC()
	key := fmt.Sprintf("%smonthly:%s:%d", keyPrefix, now.Format("2006-01"), months)

	var cached []domain.MonthlyRevenueEntry
	if ok, err := e.cached(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from := monthStart.AddDate(0, -(months - 1), 0)
	sales, err := e.repo.ListSales(ctx, store.SaleFilter{From: from, To: now.AddDate(0, 0, 1)})
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*domain.MonthlyRevenueEntry, months)
	order := make([]string, 0, months)
	for i := 0; i < months; i++ {
		month := from.AddDate(0, i, 0).Format("2006-01")
		byMonth[month] = &domain.MonthlyRevenueEntry{Month: month}
		order = append(order, month)
	}
	for _, sale := range sales {
		month := sale.CreatedAt.UTC().Format("2006-01")
		entry, ok := byMonth[month]
		if !ok {
			continue
		}
		entry.Sales++
		entry.RevenueCents += sale.TotalCents
	}

	entries := make([]domain.MonthlyRevenueEntry, 0, months)
	for _, month := range order {
		entries = append(entries, *byMonth[month])
	}

	e.put(ctx, key, entries)
	return entries, nil
}

func (e *Engine) cached(ctx context.Context, key string, out any) (bool, error) {
	payload, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) put(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	// Cache failures are not worth failing a report over.
	_ = e.cache.Set(ctx, key, payload, e.cacheTTL)
}
