package onchain

import (
	"slices"
	"strconv"

	"github.com/ohler55/ojg/jp"
)

// Social dapps with a follow graph.
const (
	DappFarcaster = "farcaster"
	DappLens      = "lens"
)

// Token blockchains searched for shared NFT collections and transfers.
const (
	ChainEthereum = "ethereum"
	ChainPolygon  = "polygon"
	ChainBase     = "base"
)

var (
	pathAttendeeOwner = mustPath("$.attendee.owner")
	pathEventID       = mustPath("$.eventId")
	pathEventName     = mustPath("$.poapEvent.eventName")
	pathEventImage    = mustPath("$.poapEvent.contentValue.image.extraSmall")

	pathMutualFollower  = mustPath("$.mutualFollower.Follower[0]")
	pathMutualFollowing = mustPath("$.mutualFollowing.Following[0]")

	pathOwner      = mustPath("$.owner")
	pathTokenName  = mustPath("$.token.name")
	pathTokenLogo  = mustPath("$.token.logo.small")
	pathTokenChain = mustPath("$.token.blockchain")
	pathTokenAddr  = mustPath("$.token.address")
	pathTokenIDs   = mustPath("$.token.tokenNfts[*].tokenId")
)

func mustPath(s string) jp.Expr {
	x, err := jp.ParseString(s)
	if err != nil {
		panic(err)
	}
	return x
}

func first(x jp.Expr, data any) any {
	if r := x.Get(data); len(r) > 0 {
		return r[0]
	}
	return nil
}

func str(x jp.Expr, data any) string { return asString(first(x, data)) }

func asString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

// decodeIdentity reads the Wallet shape shared by every category:
// addresses, domains, socials and xmtp.
func decodeIdentity(v any) (Profile, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Profile{}, false
	}
	var p Profile
	for _, a := range asList(m["addresses"]) {
		if s := asString(a); s != "" && !p.HasAddress(s) {
			p.Addresses = append(p.Addresses, s)
		}
	}
	if len(p.Addresses) == 0 {
		return Profile{}, false
	}
	for _, d := range asList(m["domains"]) {
		dm, _ := d.(map[string]any)
		if name := asString(dm["name"]); name != "" {
			primary, _ := dm["isPrimary"].(bool)
			p.Domains = append(p.Domains, Domain{Name: name, IsPrimary: primary})
		}
	}
	for _, s := range asList(m["socials"]) {
		sm, _ := s.(map[string]any)
		if sm == nil {
			continue
		}
		p.Socials = append(p.Socials, Social{
			DappName:            asString(sm["dappName"]),
			Blockchain:          asString(sm["blockchain"]),
			ProfileName:         asString(sm["profileName"]),
			ProfileImage:        asString(sm["profileImage"]),
			ProfileTokenID:      asString(sm["profileTokenId"]),
			ProfileTokenAddress: asString(sm["profileTokenAddress"]),
		})
	}
	for _, x := range asList(m["xmtp"]) {
		xm, _ := x.(map[string]any)
		enabled, _ := xm["isXMTPEnabled"].(bool)
		p.XMTP = append(p.XMTP, XMTP{IsXMTPEnabled: enabled})
	}
	return p, true
}

// PoapFormat reads Poap records whose attendee shares an event with the user.
type PoapFormat struct{}

func (PoapFormat) Category() Category { return CategoryPoaps }

func (PoapFormat) Identity(r any) (Profile, bool) {
	return decodeIdentity(first(pathAttendeeOwner, r))
}

func (PoapFormat) Apply(p *Profile, r any) {
	id := str(pathEventID, r)
	if slices.ContainsFunc(p.POAPs, func(x POAP) bool { return x.EventID == id }) {
		return
	}
	p.POAPs = append(p.POAPs, POAP{
		Name:    str(pathEventName, r),
		Image:   str(pathEventImage, r),
		EventID: id,
	})
}

// FollowFormat reads the Wallet records of a social graph. With Followers
// unset the records are accounts the user follows, otherwise accounts
// following the user. The mutual sub-selection marks the reverse edge.
type FollowFormat struct {
	Dapp      string
	Followers bool
}

func (f FollowFormat) Category() Category {
	switch {
	case f.Followers && f.Dapp == DappLens:
		return CategoryFollowersLens
	case f.Followers:
		return CategoryFollowersFarcaster
	case f.Dapp == DappLens:
		return CategoryFollowingsLens
	default:
		return CategoryFollowingsFarcaster
	}
}

func (FollowFormat) Identity(r any) (Profile, bool) { return decodeIdentity(r) }

func (f FollowFormat) Apply(p *Profile, r any) {
	following, followed := true, len(pathMutualFollower.Get(r)) > 0
	if f.Followers {
		following, followed = len(pathMutualFollowing.Get(r)) > 0, true
	}
	switch f.Dapp {
	case DappLens:
		p.Follows.FollowingOnLens = p.Follows.FollowingOnLens || following
		p.Follows.FollowedOnLens = p.Follows.FollowedOnLens || followed
	case DappFarcaster:
		p.Follows.FollowingOnFarcaster = p.Follows.FollowingOnFarcaster || following
		p.Follows.FollowedOnFarcaster = p.Follows.FollowedOnFarcaster || followed
	}
}

// TransferFormat reads the counterpart Wallet of a token transfer. Received
// selects transfers into the user's wallet.
type TransferFormat struct {
	Received bool
}

func (f TransferFormat) Category() Category {
	if f.Received {
		return CategoryTokenReceived
	}
	return CategoryTokenSent
}

func (TransferFormat) Identity(r any) (Profile, bool) { return decodeIdentity(r) }

func (f TransferFormat) Apply(p *Profile, _ any) {
	if f.Received {
		p.TokenTransfers.Received = true
	} else {
		p.TokenTransfers.Sent = true
	}
}

// NFTFormat reads TokenBalance records of collections the user also holds.
type NFTFormat struct {
	Chain string
}

func (f NFTFormat) Category() Category {
	switch f.Chain {
	case ChainPolygon:
		return CategoryNFTPolygon
	case ChainBase:
		return CategoryNFTBase
	default:
		return CategoryNFTEthereum
	}
}

func (NFTFormat) Identity(r any) (Profile, bool) { return decodeIdentity(first(pathOwner, r)) }

func (f NFTFormat) Apply(p *Profile, r any) {
	n := NFT{
		Name:       str(pathTokenName, r),
		Image:      str(pathTokenLogo, r),
		Blockchain: str(pathTokenChain, r),
		Address:    str(pathTokenAddr, r),
	}
	if n.Address == "" {
		return
	}
	if n.Blockchain == "" {
		n.Blockchain = f.Chain
	}
	for _, id := range pathTokenIDs.Get(r) {
		n.TokenNfts = append(n.TokenNfts, TokenNFT{TokenID: asString(id)})
	}
	key := n.key()
	if slices.ContainsFunc(p.NFTs, func(x NFT) bool { return x.key() == key }) {
		return
	}
	p.NFTs = append(p.NFTs, n)
}
