// Package onchain builds a user's onchain graph: it pages through several
// categories of Airstack records (POAP co-attendance, social follows, token
// transfers, NFT co-ownership), folds them into address-keyed profiles and
// ranks the profiles by a weighted score.
package onchain
