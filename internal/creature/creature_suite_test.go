package creature_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCreature(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Creature Suite")
}
