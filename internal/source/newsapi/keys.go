package newsapi

import "math/rand/v2"

// keyRing rotates through a pool of API keys round-robin. The cursor starts
// at a random offset so independent deployments sharing a pool do not all
// start on the same key.
type keyRing struct {
	keys   []string
	cursor int
}

func newKeyRing(keys []string) *keyRing {
	return &keyRing{
		keys:   keys,
		cursor: rand.IntN(len(keys)),
	}
}

// next returns the current key and advances the cursor, wrapping at the end.
// The cursor moves on every call, whether or not the request succeeds.
func (k *keyRing) next() string {
	key := k.keys[k.cursor]
	k.cursor = (k.cursor + 1) % len(k.keys)
	return key
}
