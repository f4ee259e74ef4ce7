package strategy

import (
	"fmt"
	"sort"

	"mm_sim/internal/domain"
)

type factory func(params map[string]any, seed uint64) (Strategy, error)

var registry = map[string]factory{
	"simple": func(params map[string]any, _ uint64) (Strategy, error) {
		s := NewSimpleMarketMaker()
		var err error
		if s.Volume, err = intParam(params, "volume", s.Volume); err != nil {
			return nil, err
		}
		window, err := intParam(params, "window", int64(s.Window))
		if err != nil {
			return nil, err
		}
		s.Window = int(window)
		return s, nil
	},
	"sma": func(params map[string]any, _ uint64) (Strategy, error) {
		short, err := intParam(params, "short", 5)
		if err != nil {
			return nil, err
		}
		long, err := intParam(params, "long", 20)
		if err != nil {
			return nil, err
		}
		if short <= 0 || short >= long {
			return nil, &domain.ConfigError{Field: "strategy.params.short", Err: fmt.Errorf("must be positive and less than long (%d)", long)}
		}
		s := NewSMAQuoter(int(short), int(long))
		if s.Volume, err = intParam(params, "volume", s.Volume); err != nil {
			return nil, err
		}
		if s.Edge, err = floatParam(params, "edge", s.Edge); err != nil {
			return nil, err
		}
		window, err := intParam(params, "window", int64(s.Window))
		if err != nil {
			return nil, err
		}
		s.Window = int(window)
		return s, nil
	},
	"montecarlo": func(params map[string]any, seed uint64) (Strategy, error) {
		m := NewMonteCarloMaker(seed)
		paths, err := intParam(params, "paths", int64(m.Paths))
		if err != nil {
			return nil, err
		}
		horizon, err := intParam(params, "horizon", int64(m.Horizon))
		if err != nil {
			return nil, err
		}
		m.Paths, m.Horizon = int(paths), int(horizon)
		if m.Volume, err = intParam(params, "volume", m.Volume); err != nil {
			return nil, err
		}
		if m.Threshold, err = floatParam(params, "threshold", m.Threshold); err != nil {
			return nil, err
		}
		return m, nil
	},
}

// New builds a registered strategy by name. Params come from config and may be nil.
func New(name string, params map[string]any, seed uint64) (Strategy, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, name)
	}
	return f(params, seed)
}

// Names lists the registered strategies.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// yaml decodes whole numbers as int and the rest as float64.
func floatParam(params map[string]any, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, &domain.ConfigError{Field: "strategy.params." + key, Err: fmt.Errorf("expected number, got %T", v)}
	}
}

func intParam(params map[string]any, key string, def int64) (int64, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, &domain.ConfigError{Field: "strategy.params." + key, Err: fmt.Errorf("expected integer, got %v", n)}
		}
		return int64(n), nil
	default:
		return 0, &domain.ConfigError{Field: "strategy.params." + key, Err: fmt.Errorf("expected integer, got %T", v)}
	}
}
