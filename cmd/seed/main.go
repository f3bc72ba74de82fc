// File: cmd/seed/main.go
// Seeds demo users and coupons for exercising the payment flow locally.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"intelligrid-billing/internal/config"
	"intelligrid-billing/internal/domain/model"
	pg "intelligrid-billing/internal/infra/db/postgres"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	userRepo := pg.NewPostgresUserRepo(pool)
	couponRepo := pg.NewPostgresCouponRepo(pool)

	users := []struct{ email, name string }{
		{"alice@example.com", "Alice"},
		{"bob@example.com", "Bob"},
	}
	for _, s := range users {
		u, err := model.NewUser(seedUserID(s.email), s.email, s.name)
		if err != nil {
			log.Fatalf("new user %s: %v", s.email, err)
		}
		if err := userRepo.Save(ctx, nil, u); err != nil {
			log.Fatalf("save user %s: %v", s.email, err)
		}
		fmt.Printf("user %s id=%s\n", u.Email, u.ID)
	}

	now := time.Now()
	coupons := []*model.Coupon{
		{
			Code:         "WELCOME10",
			Type:         model.CouponTypePercentage,
			Value:        10,
			MaxDiscount:  500,
			ValidFrom:    now,
			ValidUntil:   now.AddDate(1, 0, 0),
			UsageLimit:   0,
			PerUserLimit: 1,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			Code:         "FLAT5",
			Type:         model.CouponTypeFixed,
			Value:        500,
			ValidFrom:    now,
			ValidUntil:   now.AddDate(0, 3, 0),
			UsageLimit:   100,
			PerUserLimit: 2,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
	for _, c := range coupons {
		if err := couponRepo.Save(ctx, nil, c); err != nil {
			log.Fatalf("save coupon %s: %v", c.Code, err)
		}
		fmt.Printf("coupon %s (%s %d)\n", c.Code, c.Type, c.Value)
	}
}

// seedUserID derives a stable id from the email so reruns upsert the same
// rows instead of colliding on the unique email constraint.
func seedUserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(email)).String()
}
