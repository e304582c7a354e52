package syncer

import "time"

type Config struct {
	RequestTimeout time.Duration // timeout por request remoto
	Debounce       time.Duration // espera tras un cambio antes de sincronizar
	MaxParallel    int           // requests simultáneos por pasada

	BackoffInitial time.Duration
	BackoffMax     time.Duration

	BreakerThreshold int           // fallos consecutivos para abrir
	BreakerCooldown  time.Duration // tiempo abierto antes de probar de nuevo
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout:   10 * time.Second,
		Debounce:         500 * time.Millisecond,
		MaxParallel:      4,
		BackoffInitial:   time.Second,
		BackoffMax:       5 * time.Minute,
		BreakerThreshold: 5,
		BreakerCooldown:  time.Minute,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.MaxParallel <= 0 {
		c.MaxParallel = d.MaxParallel
	}
	if c.BackoffInitial <= 0 {
		c.BackoffInitial = d.BackoffInitial
	}
	if c.BackoffMax < c.BackoffInitial {
		c.BackoffMax = c.BackoffInitial
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = d.BreakerThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = d.BreakerCooldown
	}
	return c
}
