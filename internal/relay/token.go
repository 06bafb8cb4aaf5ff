package relay

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
)

var subjects = []string{
	"algebra", "biology", "chemistry", "physics", "history", "geometry", "grammar", "botany", "astronomy", "geography",
	"calculus", "poetry", "drama", "music", "painting", "logic", "ethics", "anatomy", "ecology", "optics",
}

var objects = []string{
	"chalk", "easel", "globe", "compass", "notebook", "pencil", "eraser", "ruler", "beaker", "prism",
	"atlas", "abacus", "lectern", "slate", "satchel", "inkwell", "flask", "magnet", "pendulum", "telescope",
}

var qualities = []string{
	"bright", "curious", "eager", "steady", "quick", "patient", "clever", "lively", "quiet", "bold",
	"keen", "gentle", "nimble", "sunny", "brisk", "merry", "sharp", "calm", "witty", "earnest",
}

// generateRoomCode creates a random, memorable room code in the form
// quality-subject-object (e.g. "curious-botany-telescope"). The caller is
// responsible for checking uniqueness against live rooms.
func generateRoomCode() string {
	return fmt.Sprintf("%s-%s-%s",
		qualities[randomIndex(len(qualities))],
		subjects[randomIndex(len(subjects))],
		objects[randomIndex(len(objects))],
	)
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		slog.Error("failed to generate random index", "error", err)
		panic(err)
	}
	return int(n.Int64())
}
