package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// VelocityChecker rate limits bookings per patient using Redis counters.
type VelocityChecker struct {
	redis  *redis.Client
	logger *logging.Logger
	config VelocityConfig
}

// VelocityConfig contains velocity check configuration.
type VelocityConfig struct {
	// Max bookings per patient per window
	MaxBookingsPerPatient int
	Window                time.Duration
	Enabled               bool
}

// DefaultVelocityConfig returns default velocity limits.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		MaxBookingsPerPatient: 5,
		Window:                time.Hour,
		Enabled:               true,
	}
}

// VelocityResult contains the result of a velocity check.
type VelocityResult struct {
	Allowed      bool
	CurrentCount int
	MaxAllowed   int
	WindowExpiry time.Time
	Message      string
}

// NewVelocityChecker creates a new velocity checker.
func NewVelocityChecker(redisClient *redis.Client, config VelocityConfig, logger *logging.Logger) *VelocityChecker {
	if logger == nil {
		logger = logging.Default()
	}
	return &VelocityChecker{
		redis:  redisClient,
		logger: logger,
		config: config,
	}
}

func velocityKey(patientID string) string {
	return fmt.Sprintf("velocity:booking:%s", patientID)
}

// CheckBookingVelocity counts a booking attempt for patientID and reports whether it is allowed.
// Redis failures fail open.
func (v *VelocityChecker) CheckBookingVelocity(ctx context.Context, patientID string) (*VelocityResult, error) {
	ctx, span := bookingsTracer.Start(ctx, "velocity.check_booking")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.patient_id", patientID))

	if !v.config.Enabled || v.redis == nil {
		return &VelocityResult{Allowed: true}, nil
	}

	key := velocityKey(patientID)
	count, expiry, err := v.incrementAndGet(ctx, key, v.config.Window)
	if err != nil {
		v.logger.Error("velocity check failed", "error", err, "key", key)
		return &VelocityResult{Allowed: true, Message: "velocity check unavailable"}, nil
	}

	result := &VelocityResult{
		Allowed:      count <= v.config.MaxBookingsPerPatient,
		CurrentCount: count,
		MaxAllowed:   v.config.MaxBookingsPerPatient,
		WindowExpiry: expiry,
	}

	if !result.Allowed {
		result.Message = fmt.Sprintf("exceeded %d booking attempts in %s", v.config.MaxBookingsPerPatient, v.config.Window)
		v.logger.Warn("booking velocity exceeded",
			"patient_id", patientID,
			"count", count,
			"max", v.config.MaxBookingsPerPatient,
		)
		span.SetAttributes(attribute.Bool("velocity.exceeded", true))
	}

	return result, nil
}

// incrementAndGet increments a counter and returns the new value with expiry time.
func (v *VelocityChecker) incrementAndGet(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	count, err := v.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, time.Time{}, err
	}

	// Set expiry only on first increment
	if count == 1 {
		v.redis.Expire(ctx, key, window)
	}

	ttl, err := v.redis.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}

	return int(count), time.Now().Add(ttl), nil
}

// ResetBookingVelocity clears the counter for a patient (admin use).
func (v *VelocityChecker) ResetBookingVelocity(ctx context.Context, patientID string) error {
	return v.redis.Del(ctx, velocityKey(patientID)).Err()
}

// GetBookingStats returns the current counter without incrementing it.
func (v *VelocityChecker) GetBookingStats(ctx context.Context, patientID string) (*VelocityResult, error) {
	key := velocityKey(patientID)
	count, err := v.redis.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return &VelocityResult{Allowed: true, MaxAllowed: v.config.MaxBookingsPerPatient}, nil
	}
	if err != nil {
		return nil, err
	}
	ttl, _ := v.redis.TTL(ctx, key).Result()
	return &VelocityResult{
		Allowed:      count < v.config.MaxBookingsPerPatient,
		CurrentCount: count,
		MaxAllowed:   v.config.MaxBookingsPerPatient,
		WindowExpiry: time.Now().Add(ttl),
	}, nil
}
