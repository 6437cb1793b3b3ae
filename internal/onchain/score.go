package onchain

import (
	"cmp"
	"slices"
	"strings"
)

// Weight keys. A key missing from Weights contributes nothing.
const (
	WeightFollowingOnLens      = "followingOnLens"
	WeightFollowedOnLens       = "followedOnLens"
	WeightFollowingOnFarcaster = "followingOnFarcaster"
	WeightFollowedOnFarcaster  = "followedOnFarcaster"
	WeightTokenSent            = "tokenSent"
	WeightTokenReceived        = "tokenReceived"
	WeightCommonPoaps          = "commonPoaps"
	WeightCommonEthNfts        = "commonEthNfts"
	WeightCommonPolygonNfts    = "commonPolygonNfts"
	WeightCommonBaseNfts       = "commonBaseNfts"
)

// Weights maps a signal to its contribution per occurrence.
type Weights map[string]float64

// DefaultWeights returns a fresh copy of the default weights.
func DefaultWeights() Weights {
	return Weights{
		WeightFollowingOnLens:      7,
		WeightFollowedOnLens:       5,
		WeightFollowingOnFarcaster: 5,
		WeightFollowedOnFarcaster:  5,
		WeightTokenSent:            10,
		WeightTokenReceived:        0,
		WeightCommonPoaps:          7,
		WeightCommonEthNfts:        5,
		WeightCommonPolygonNfts:    0,
	}
}

// BurnedAddresses lists null and dead addresses. Profiles holding one of them
// are never ranked.
var BurnedAddresses = []string{
	"0x0000000000000000000000000000000000000000",
	"0x000000000000000000000000000000000000dead",
	"0x000000000000000000000000000000000000000000dead",
}

// IsBurned reports whether addr is on the burned list, ignoring case.
func IsBurned(addr string) bool {
	return slices.ContainsFunc(BurnedAddresses, func(b string) bool { return strings.EqualFold(b, addr) })
}

// excluded reports whether p is the queried identity itself or a burned
// address.
func excluded(p *Profile, identity string) bool {
	if slices.ContainsFunc(p.Addresses, IsBurned) {
		return true
	}
	if identity == "" {
		return false
	}
	if p.HasAddress(identity) {
		return true
	}
	return slices.ContainsFunc(p.Domains, func(d Domain) bool { return strings.EqualFold(d.Name, identity) })
}

// Score returns a copy of p carrying its weighted score. ok is false when p
// is excluded from ranking.
func Score(p Profile, identity string, w Weights) (scored Profile, ok bool) {
	if excluded(&p, identity) {
		return Profile{}, false
	}
	var s float64
	flag := func(set bool, key string) {
		if set {
			s += w[key]
		}
	}
	flag(p.Follows.FollowingOnLens, WeightFollowingOnLens)
	flag(p.Follows.FollowedOnLens, WeightFollowedOnLens)
	flag(p.Follows.FollowingOnFarcaster, WeightFollowingOnFarcaster)
	flag(p.Follows.FollowedOnFarcaster, WeightFollowedOnFarcaster)
	flag(p.TokenTransfers.Sent, WeightTokenSent)
	flag(p.TokenTransfers.Received, WeightTokenReceived)

	seen := make(map[string]bool, len(p.NFTs))
	counts := map[string]int{}
	for _, n := range p.NFTs {
		k := n.key()
		if seen[k] || IsBurned(n.Address) {
			continue
		}
		seen[k] = true
		counts[n.Blockchain]++
	}
	s += float64(counts[ChainEthereum]) * w[WeightCommonEthNfts]
	s += float64(counts[ChainPolygon]) * w[WeightCommonPolygonNfts]
	s += float64(counts[ChainBase]) * w[WeightCommonBaseNfts]
	s += float64(len(p.POAPs)) * w[WeightCommonPoaps]

	scored = p.Clone()
	scored.Score = &s
	return scored, true
}

// Rank scores every profile, drops the excluded ones and orders the rest by
// descending score. Ties keep their merge order.
func Rank(profiles []Profile, identity string, w Weights) []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		if s, ok := Score(p, identity, w); ok {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b Profile) int { return cmp.Compare(*b.Score, *a.Score) })
	return out
}
