package redis

const (
	keyPrefix = "researchbot/"

	// KeyPrefixSeenURL marks result URLs that were already summarized.
	KeyPrefixSeenURL = keyPrefix + "seen/"
)
