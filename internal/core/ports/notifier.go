// internal/core/ports/notifier.go
package ports

import "phishtrace/internal/core/domain"

// Observer es el port para eventos de progreso de un run.
// Desacopla el pipeline de la presentación (terminal, logs).
// Las implementaciones deben ser seguras para uso concurrente.
type Observer interface {
	// OnChainStarted se invoca cuando una cadena sale de Start
	OnChainStarted(seed domain.URLSeed)

	// OnChainComplete se invoca cuando una cadena alcanza un estado terminal
	OnChainComplete(chain *domain.Chain)

	// OnAttribution se invoca cuando una clave se publica en el mapa
	OnAttribution(rec *domain.AttributionRecord)
}

// NoopObserver descarta todos los eventos.
type NoopObserver struct{}

func (NoopObserver) OnChainStarted(domain.URLSeed)           {}
func (NoopObserver) OnChainComplete(*domain.Chain)           {}
func (NoopObserver) OnAttribution(*domain.AttributionRecord) {}

// Observers reparte cada evento entre varios observers, en orden.
type Observers []Observer

func (o Observers) OnChainStarted(seed domain.URLSeed) {
	for _, obs := range o {
		obs.OnChainStarted(seed)
	}
}

func (o Observers) OnChainComplete(chain *domain.Chain) {
	for _, obs := range o {
		obs.OnChainComplete(chain)
	}
}

func (o Observers) OnAttribution(rec *domain.AttributionRecord) {
	for _, obs := range o {
		obs.OnAttribution(rec)
	}
}
