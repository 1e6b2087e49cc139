package app

import (
	"fmt"

	envelopeHTTP "github.com/allisson/envelope/internal/envelope/http"
	envelopeUseCase "github.com/allisson/envelope/internal/envelope/usecase"
)

// EnvelopeUseCase returns the envelope encryption service.
func (c *Container) EnvelopeUseCase() (envelopeUseCase.EnvelopeUseCase, error) {
	var err error
	c.envelopeUseCaseInit.Do(func() {
		c.envelopeUseCase, err = c.initEnvelopeUseCase()
		if err != nil {
			c.initErrors["envelopeUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeUseCase"]; exists {
		return nil, storedErr
	}
	return c.envelopeUseCase, nil
}

// EnvelopeHandler returns the envelope HTTP handler.
func (c *Container) EnvelopeHandler() (*envelopeHTTP.EnvelopeHandler, error) {
	var err error
	c.envelopeHandlerInit.Do(func() {
		c.envelopeHandler, err = c.initEnvelopeHandler()
		if err != nil {
			c.initErrors["envelopeHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["envelopeHandler"]; exists {
		return nil, storedErr
	}
	return c.envelopeHandler, nil
}

// initEnvelopeUseCase creates the envelope service on top of the key registry.
func (c *Container) initEnvelopeUseCase() (envelopeUseCase.EnvelopeUseCase, error) {
	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for envelope use case: %w", err)
	}

	baseUseCase := envelopeUseCase.NewEnvelopeUseCase(
		keyUseCase,
		c.AeadCodec(),
		envelopeUseCase.Config{
			BatchConcurrency: c.config.BatchConcurrency,
			BatchMaxSize:     c.config.BatchMaxSize,
		},
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for envelope use case: %w", err)
		}
		return envelopeUseCase.NewEnvelopeUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initEnvelopeHandler creates the envelope HTTP handler with all its dependencies.
func (c *Container) initEnvelopeHandler() (*envelopeHTTP.EnvelopeHandler, error) {
	useCase, err := c.EnvelopeUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get envelope use case for envelope handler: %w", err)
	}

	return envelopeHTTP.NewEnvelopeHandler(useCase, c.Logger()), nil
}
