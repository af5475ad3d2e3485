package pk2

// ArchiveOption configures an Archive at construction time, the same
// functional-options shape the teacher uses for its Writer.
type ArchiveOption func(*archiveConfig)

type archiveConfig struct {
	maxChainBlocks int
}

// WithMaxChainBlocks overrides the bound on how many blocks the chain
// reader will follow before failing with ErrMalformedChain. The default
// is defaultMaxChainBlocks.
func WithMaxChainBlocks(n int) ArchiveOption {
	return func(c *archiveConfig) {
		c.maxChainBlocks = n
	}
}

func newArchiveConfig(opts []ArchiveOption) *archiveConfig {
	cfg := &archiveConfig{maxChainBlocks: defaultMaxChainBlocks}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
