// Package xoshiro256 implements the xoshiro256** splitmix-seeded hash,
// used where a fast non-cryptographic fingerprint of a small integer is
// needed — e.g. scrambling a monotonic instance ID before using it as a
// buntdb/namespace-pool shard key, so sequential IDs don't cluster.
// no-copyright
package xoshiro256

// Hash mixes a single uint64 input through one splitmix64 round followed
// by a xoshiro256** style avalanche. It is deterministic and has no
// cryptographic properties.
func Hash(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}
