package onchain

import (
	"slices"
	"strings"
)

// Category names one kind of record folded into the graph.
type Category string

const (
	CategoryPoaps               Category = "poaps"
	CategoryFollowingsFarcaster Category = "followings_farcaster"
	CategoryFollowingsLens      Category = "followings_lens"
	CategoryFollowersFarcaster  Category = "followers_farcaster"
	CategoryFollowersLens       Category = "followers_lens"
	CategoryTokenSent           Category = "token_sent"
	CategoryTokenReceived       Category = "token_received"
	CategoryNFTEthereum         Category = "nft_ethereum"
	CategoryNFTPolygon          Category = "nft_polygon"
	CategoryNFTBase             Category = "nft_base"
)

// Categories lists every category in merge order.
var Categories = []Category{
	CategoryPoaps,
	CategoryFollowingsFarcaster,
	CategoryFollowingsLens,
	CategoryFollowersFarcaster,
	CategoryFollowersLens,
	CategoryTokenSent,
	CategoryTokenReceived,
	CategoryNFTEthereum,
	CategoryNFTPolygon,
	CategoryNFTBase,
}

type Domain struct {
	Name      string `json:"name"`
	IsPrimary bool   `json:"isPrimary"`
}

type Social struct {
	DappName            string `json:"dappName"`
	Blockchain          string `json:"blockchain,omitempty"`
	ProfileName         string `json:"profileName"`
	ProfileImage        string `json:"profileImage,omitempty"`
	ProfileTokenID      string `json:"profileTokenId,omitempty"`
	ProfileTokenAddress string `json:"profileTokenAddress,omitempty"`
}

type XMTP struct {
	IsXMTPEnabled bool `json:"isXMTPEnabled"`
}

// Follows records the follow relationships between the queried user and a
// profile. "Following" means the user follows the profile.
type Follows struct {
	FollowingOnLens      bool `json:"followingOnLens,omitempty"`
	FollowedOnLens       bool `json:"followedOnLens,omitempty"`
	FollowingOnFarcaster bool `json:"followingOnFarcaster,omitempty"`
	FollowedOnFarcaster  bool `json:"followedOnFarcaster,omitempty"`
}

// TokenTransfers records the transfer directions seen between the user and a
// profile.
type TokenTransfers struct {
	Sent     bool `json:"sent,omitempty"`
	Received bool `json:"received,omitempty"`
}

type TokenNFT struct {
	TokenID string `json:"tokenId"`
}

// NFT is a collection held by both the user and a profile.
type NFT struct {
	Name       string     `json:"name"`
	Image      string     `json:"image,omitempty"`
	Blockchain string     `json:"blockchain"`
	Address    string     `json:"address"`
	TokenNfts  []TokenNFT `json:"tokenNfts,omitempty"`
}

// key identifies an NFT for deduplication: the token address plus the first
// token id.
func (n NFT) key() string {
	id := ""
	if len(n.TokenNfts) > 0 {
		id = n.TokenNfts[0].TokenID
	}
	return strings.ToLower(n.Address) + "/" + id
}

// POAP is an event attended by both the user and a profile.
type POAP struct {
	Name    string `json:"name"`
	Image   string `json:"image,omitempty"`
	EventID string `json:"eventId"`
}

// Profile is one entity of the graph, identified by the set of addresses
// believed to belong to it.
type Profile struct {
	Addresses      []string       `json:"addresses"`
	Domains        []Domain       `json:"domains,omitempty"`
	Socials        []Social       `json:"socials,omitempty"`
	XMTP           []XMTP         `json:"xmtp,omitempty"`
	Follows        Follows        `json:"follows"`
	TokenTransfers TokenTransfers `json:"tokenTransfers"`
	NFTs           []NFT          `json:"nfts,omitempty"`
	POAPs          []POAP         `json:"poaps,omitempty"`
	// Score is set by Score and Rank only.
	Score *float64 `json:"_score,omitempty"`
}

// HasAddress reports whether addr belongs to p, ignoring case.
func (p *Profile) HasAddress(addr string) bool {
	return slices.ContainsFunc(p.Addresses, func(a string) bool { return strings.EqualFold(a, addr) })
}

// Intersects reports whether p shares at least one address with addrs.
func (p *Profile) Intersects(addrs []string) bool {
	return slices.ContainsFunc(addrs, p.HasAddress)
}

// Clone returns a deep copy of p.
func (p *Profile) Clone() Profile {
	out := *p
	out.Addresses = slices.Clone(p.Addresses)
	out.Domains = slices.Clone(p.Domains)
	out.Socials = slices.Clone(p.Socials)
	out.XMTP = slices.Clone(p.XMTP)
	out.NFTs = slices.Clone(p.NFTs)
	for i := range out.NFTs {
		out.NFTs[i].TokenNfts = slices.Clone(out.NFTs[i].TokenNfts)
	}
	out.POAPs = slices.Clone(p.POAPs)
	if p.Score != nil {
		s := *p.Score
		out.Score = &s
	}
	return out
}

// absorb unions the identity of other into p.
func (p *Profile) absorb(other Profile) {
	for _, a := range other.Addresses {
		if !p.HasAddress(a) {
			p.Addresses = append(p.Addresses, a)
		}
	}
	for _, d := range other.Domains {
		if !slices.ContainsFunc(p.Domains, func(x Domain) bool { return strings.EqualFold(x.Name, d.Name) }) {
			p.Domains = append(p.Domains, d)
		}
	}
	for _, s := range other.Socials {
		if !slices.ContainsFunc(p.Socials, func(x Social) bool {
			return x.DappName == s.DappName && strings.EqualFold(x.ProfileName, s.ProfileName)
		}) {
			p.Socials = append(p.Socials, s)
		}
	}
	if len(p.XMTP) == 0 {
		p.XMTP = slices.Clone(other.XMTP)
	}
}
