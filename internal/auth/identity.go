package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"tiny", "happy", "sleepy", "fluffy", "sparkly", "cheery", "silly", "jolly", "cozy", "shiny",
	"golden", "silver", "crimson", "brave", "calm", "swift", "quiet", "bouncy", "fuzzy", "merry",
}

var animals = []string{
	"kitten", "puppy", "bunny", "panda", "koala", "fox", "otter", "hedgehog", "squirrel", "hamster",
	"beaver", "seahorse", "dolphin", "narwhal", "penguin", "flamingo", "pelican", "robin", "toucan", "parrot",
}

// RandomIdentity returns a readable participant identity such as
// "cozy-otter-4821".
func RandomIdentity() string {
	return fmt.Sprintf("%s-%s-%04d",
		adjectives[randomIndex(len(adjectives))],
		animals[randomIndex(len(animals))],
		randomIndex(10000))
}

// randomIndex returns a cryptographically secure random index below max.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("read random: %v", err))
	}
	return int(n.Int64())
}
