// internal/platform/ui/noop_presenter.go
package ui

import (
	"phishtrace/internal/core/domain"
)

// NoopPresenter no produce ninguna salida. Útil para modo quiet o headless.
type NoopPresenter struct{}

// NewNoopPresenter crea una instancia del presenter sin salida
func NewNoopPresenter() *NoopPresenter {
	return &NoopPresenter{}
}

func (n *NoopPresenter) Start(info RunInfo)                          {}
func (n *NoopPresenter) OnChainStarted(seed domain.URLSeed)          {}
func (n *NoopPresenter) OnChainComplete(chain *domain.Chain)         {}
func (n *NoopPresenter) OnAttribution(rec *domain.AttributionRecord) {}
func (n *NoopPresenter) Warning(msg string)                          {}
func (n *NoopPresenter) Finish(rec *domain.OutputRecord)             {}
func (n *NoopPresenter) Close() error                                { return nil }
