package pairing

// Option configures Cartesian.
type Option func(*options)

type options struct {
	presort bool
}

// WithPreSort orders leg1 indices by isolation ascending and leg2 indices
// by discriminator descending, per event, before building the product.
// The ordering is stable and padding indices are kept last.
func WithPreSort(enabled bool) Option {
	return func(o *options) {
		o.presort = enabled
	}
}
