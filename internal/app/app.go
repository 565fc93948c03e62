package app

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/phenrril/orderdesk/internal/adapters/cache/redisvariants"
	"github.com/phenrril/orderdesk/internal/adapters/httpserver"
	"github.com/phenrril/orderdesk/internal/adapters/repo/postgres"
	"github.com/phenrril/orderdesk/internal/domain"
	"github.com/phenrril/orderdesk/internal/money"
	"github.com/phenrril/orderdesk/internal/usecase"
)

type Config struct {
	RedisAddr     string
	RedisPassword string
	VariantTTL    time.Duration
	MaxProducts   int
	Seed          bool
	HTTP          httpserver.Config
}

type App struct {
	DB        *gorm.DB
	ProductUC *usecase.ProductUC
	OrderUC   *usecase.OrderUC
	Forms     *postgres.FormRepo
	cfg       Config
	closers   []func() error
}

func NewApp(db *gorm.DB, cfg Config) (*App, error) {
	prodRepo := postgres.NewProductRepo(db)
	formRepo := postgres.NewFormRepo(db)

	app := &App{DB: db, Forms: formRepo, cfg: cfg}
	app.ProductUC = &usecase.ProductUC{Products: prodRepo}
	app.OrderUC = &usecase.OrderUC{
		Forms:       formRepo,
		Products:    prodRepo,
		Customers:   postgres.NewCustomerRepo(db),
		Orders:      postgres.NewOrderRepo(db),
		MaxProducts: cfg.MaxProducts,
	}

	if cfg.RedisAddr != "" {
		rdb := redisvariants.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			zlog.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, variant cache disabled")
			_ = rdb.Close()
		} else {
			app.ProductUC.Cache = redisvariants.New(rdb, cfg.VariantTTL)
			app.closers = append(app.closers, rdb.Close)
			zlog.Info().Str("addr", cfg.RedisAddr).Msg("variant cache enabled")
		}
	}
	return app, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.cfg.HTTP, a.ProductUC, a.OrderUC)
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (a *App) MigrateAndSeed() error {
	if err := a.DB.AutoMigrate(
		&domain.Product{}, &domain.Variant{}, &domain.Form{}, &domain.Customer{}, &domain.Order{}, &domain.OrderItem{},
	); err != nil {
		return err
	}

	_ = a.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_variants_sku_unique ON variants (sku) WHERE sku IS NOT NULL AND sku <> ''").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_products_tenant_name ON products (tenant_id, LOWER(name))").Error
	_ = a.DB.Exec("CREATE INDEX IF NOT EXISTS idx_customers_tenant_phone ON customers (tenant_id, phone)").Error

	if !a.cfg.Seed {
		return nil
	}
	var count int64
	if err := a.DB.Model(&domain.Form{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return seed(context.Background(), a.DB)
	}
	return nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	tenant := uuid.New()
	form := domain.Form{ID: uuid.New(), TenantID: tenant, Name: "Walk-in orders", MaxProducts: 20, Active: true}
	if err := postgres.NewFormRepo(db).Save(ctx, &form); err != nil {
		return err
	}

	shirt := uuid.New()
	prods := []domain.Product{
		{ID: shirt, TenantID: tenant, Name: "Cotton T-Shirt", Category: "apparel", BasePrice: decimal.NewFromInt(1450), HasVariants: true, Active: true,
			Variants: []domain.Variant{
				{ID: uuid.New(), ProductID: shirt, Color: "Black", Size: "M", SKU: "TS-BLK-M"},
				{ID: uuid.New(), ProductID: shirt, Color: "Black", Size: "L", SKU: "TS-BLK-L"},
				{ID: uuid.New(), ProductID: shirt, Color: "White", Size: "M", SKU: "TS-WHT-M"},
			}},
		{ID: uuid.New(), TenantID: tenant, Name: "Ceramic Mug", Category: "kitchen", BasePrice: decimal.NewFromInt(650), Active: true},
		{ID: uuid.New(), TenantID: tenant, Name: "Notebook A5", Category: "stationery", BasePrice: decimal.RequireFromString("325.50"), Active: true},
	}
	repo := postgres.NewProductRepo(db)
	value := decimal.Zero
	for i := range prods {
		if err := repo.SaveWithVariants(ctx, &prods[i]); err != nil {
			return err
		}
		value = value.Add(prods[i].BasePrice)
	}
	zlog.Info().Str("tenant_id", tenant.String()).Str("form_id", form.ID.String()).
		Int("products", len(prods)).Str("list_value", money.FormatRs(value)).Msg("seeded demo catalog")
	return nil
}
