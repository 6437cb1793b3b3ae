package onchain

import "strings"

// wallet is the selection every category reads a counterpart with.
const wallet = `addresses
      domains {
        name
        isPrimary
      }
      socials {
        dappName
        blockchain
        profileName
        profileImage
        profileTokenId
        profileTokenAddress
      }
      xmtp {
        isXMTPEnabled
      }`

func withWallet(q string) string { return strings.ReplaceAll(q, "WALLET", wallet) }

const poapEventsQuery = `query PoapEvents($user: Identity!) {
  Poaps(input: {filter: {owner: {_eq: $user}}, blockchain: ALL, limit: 200}) {
    Poap {
      eventId
      poapEvent {
        isVirtualEvent
      }
    }
  }
}`

var poapHoldersQuery = withWallet(`query PoapHolders($eventIds: [String!]) {
  Poaps(input: {filter: {eventId: {_in: $eventIds}}, blockchain: ALL, limit: 200}) {
    Poap {
      eventId
      poapEvent {
        eventName
        contentValue {
          image {
            extraSmall
          }
        }
      }
      attendee {
        owner {
          WALLET
        }
      }
    }
  }
}`)

var socialFollowingsQuery = withWallet(`query SocialFollowings($user: Identity!, $dappName: SocialDappName!) {
  SocialFollowings(
    input: {filter: {identity: {_eq: $user}, dappName: {_eq: $dappName}}, blockchain: ALL, limit: 200}
  ) {
    Following {
      followingAddress {
        WALLET
        mutualFollower: socialFollowers(
          input: {filter: {identity: {_eq: $user}, dappName: {_eq: $dappName}}}
        ) {
          Follower {
            followerAddress {
              socials {
                profileName
              }
            }
          }
        }
      }
    }
  }
}`)

var socialFollowersQuery = withWallet(`query SocialFollowers($user: Identity!, $dappName: SocialDappName!) {
  SocialFollowers(
    input: {filter: {identity: {_eq: $user}, dappName: {_eq: $dappName}}, blockchain: ALL, limit: 200}
  ) {
    Follower {
      followerAddress {
        WALLET
        mutualFollowing: socialFollowings(
          input: {filter: {identity: {_eq: $user}, dappName: {_eq: $dappName}}}
        ) {
          Following {
            followingAddress {
              socials {
                profileName
              }
            }
          }
        }
      }
    }
  }
}`)

// transferBranches are the per-chain branch keys of the transfer queries.
var transferBranches = []string{"Ethereum", "Polygon", "Base"}

// transfersQuery selects the counterpart of every transfer touching the user
// on each chain. Sent transfers filter on the sender and read the receiver;
// received ones do the opposite.
func transfersQuery(received bool) string {
	filter, account := "from", "to"
	if received {
		filter, account = "to", "from"
	}
	var b strings.Builder
	b.WriteString("query TokenTransfers($user: Identity!) {\n")
	for _, branch := range transferBranches {
		b.WriteString("  " + branch + ": TokenTransfers(\n")
		b.WriteString("    input: {filter: {" + filter + ": {_eq: $user}}, blockchain: " + strings.ToLower(branch) + ", limit: 200}\n")
		b.WriteString("  ) {\n    TokenTransfer {\n      account: " + account + " {\n        WALLET\n      }\n    }\n  }\n")
	}
	b.WriteString("}")
	return withWallet(b.String())
}

const nftCollectionsQuery = `query NFTCollections($user: Identity!, $chain: TokenBlockchain!) {
  TokenBalances(
    input: {filter: {tokenType: {_in: [ERC721]}, owner: {_eq: $user}}, blockchain: $chain, limit: 200}
  ) {
    TokenBalance {
      tokenAddress
    }
  }
}`

var nftHoldersQuery = withWallet(`query NFTHolders($tokenAddresses: [Address!], $chain: TokenBlockchain!) {
  TokenBalances(
    input: {filter: {tokenAddress: {_in: $tokenAddresses}, tokenType: {_in: [ERC721]}}, blockchain: $chain, limit: 200}
  ) {
    TokenBalance {
      token {
        name
        address
        tokenNfts {
          tokenId
        }
        blockchain
        logo {
          small
        }
      }
      owner {
        WALLET
      }
    }
  }
}`)
