package bootstrap

import (
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/bookings"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildVelocity returns the per-patient booking limiter, or nil when it is
// disabled or Redis is unavailable.
func BuildVelocity(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) *bookings.VelocityChecker {
	if cfg == nil || !cfg.BookingVelocityEnabled {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if redisClient == nil {
		logger.Warn("booking velocity enabled but redis is unavailable; limiter disabled")
		return nil
	}
	limits := bookings.DefaultVelocityConfig()
	if cfg.BookingVelocityMax > 0 {
		limits.MaxBookingsPerPatient = cfg.BookingVelocityMax
	}
	if cfg.BookingVelocityWindow > 0 {
		limits.Window = cfg.BookingVelocityWindow
	}
	return bookings.NewVelocityChecker(redisClient, limits, logger.WithComponent("velocity"))
}
