package barrier

import (
	"github.com/rs/zerolog"
)

// SimRelay is a software stand-in for a GPIO relay, used when the service
// runs without barrier hardware attached.
type SimRelay struct {
	Pin int
	Log zerolog.Logger
}

func (r *SimRelay) On() error {
	r.Log.Info().Int("pin", r.Pin).Msg("[SIM] relay energized")
	return nil
}

func (r *SimRelay) Off() error {
	r.Log.Info().Int("pin", r.Pin).Msg("[SIM] relay de-energized")
	return nil
}

// SimSensor is a software stand-in for a GPIO obstruction sensor on the
// configured pin. It always reads clear.
type SimSensor struct {
	Pin int
	Log zerolog.Logger
}

func (s *SimSensor) Obstructed() (bool, error) {
	s.Log.Debug().Int("pin", s.Pin).Msg("[SIM] sensor clear")
	return false, nil
}

// ClearSensor is a sensor that never reports an obstruction, for setups
// without a physical obstruction sensor wired in.
type ClearSensor struct{}

func (ClearSensor) Obstructed() (bool, error) { return false, nil }
