package service

import (
	"sync"

	"controlling_relay/internal/models"
)

// Label keys resolved by the UI layer.
const (
	LabelTurnedOn   = "^TurnedOnLabel"
	LabelTurningOn  = "^TurningOnLabel"
	LabelTurnedOff  = "^TurnedOffLabel"
	LabelTurningOff = "^TurningOffLabel"
	LabelError      = "^ErrorLabel"
)

const (
	DefaultOnIcon  = "icRemoteButtonGreen"
	DefaultOffIcon = "icRemoteButtonRed"
	IconSpinner    = "icSpinner"
	IconAlert      = "icAlertRegular"
)

// Icon attribute keys accepted by SetIcon.
const (
	OnIconKey  = "onIcon"
	OffIconKey = "offIcon"
)

// Presenter maps relay states to labels and icons. On/off icons can be changed at runtime.
type Presenter struct {
	mu      sync.RWMutex
	onIcon  string
	offIcon string
}

// NewPresenter falls back to the default icons for empty arguments.
func NewPresenter(onIcon, offIcon string) *Presenter {
	if onIcon == "" {
		onIcon = DefaultOnIcon
	}
	if offIcon == "" {
		offIcon = DefaultOffIcon
	}
	return &Presenter{onIcon: onIcon, offIcon: offIcon}
}

func (p *Presenter) Present(s models.RelayState) models.Presentation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch s {
	case models.TurnedOn:
		return models.Presentation{Label: LabelTurnedOn, Icon: p.onIcon}
	case models.TurningOn:
		return models.Presentation{Label: LabelTurningOn, Icon: IconSpinner}
	case models.TurningOff:
		return models.Presentation{Label: LabelTurningOff, Icon: IconSpinner}
	case models.Error:
		return models.Presentation{Label: LabelError, Icon: IconAlert}
	default:
		return models.Presentation{Label: LabelTurnedOff, Icon: p.offIcon}
	}
}

// SetIcon updates the on or off icon. An empty value keeps the current icon.
// It reports whether key names an icon attribute.
func (p *Presenter) SetIcon(key, value string) bool {
	if key != OnIconKey && key != OffIconKey {
		return false
	}
	if value == "" {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if key == OnIconKey {
		p.onIcon = value
	} else {
		p.offIcon = value
	}
	return true
}

// Icons returns the current on and off icons.
func (p *Presenter) Icons() (on, off string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.onIcon, p.offIcon
}
