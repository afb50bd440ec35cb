package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"roomy/internal/config"
	"roomy/internal/service"
)

// The sweep runs the two batch passes that are deliberately not part of the
// request path: expiring stale proposals and spawning due recurring bills.
// Intended to be invoked periodically by an external scheduler (cron).
func main() {
	cfg := config.LoadConfig()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	now := time.Now()
	expired, err := service.NewProposalService(db).ExpireStaleProposals(now)
	if err != nil {
		logrus.Fatalf("proposal expiry sweep failed: %v", err)
	}
	spawned, err := service.NewBillService(db).SpawnDueRecurring(now)
	if err != nil {
		logrus.Fatalf("recurring bill sweep failed: %v", err)
	}
	logrus.WithFields(logrus.Fields{
		"expired_proposals": expired,
		"spawned_bills":     spawned,
	}).Info("Sweep completed")
}
