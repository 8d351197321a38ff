package ssn_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSSN(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SSN Suite")
}
