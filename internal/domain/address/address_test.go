package address_test

import (
	"strings"
	"testing"

	"github.com/pnlboard/pnlboard/internal/domain/address"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given a default normalizer", t, func() {
		n := address.New()

		Convey("Then checksummed addresses fold to lowercase", func() {
			addr, ok := n.Normalize("  0xAbCd1234  ")
			So(ok, ShouldBeTrue)
			So(addr, ShouldEqual, "0xabcd1234")
		})

		Convey("Then blank input is rejected", func() {
			_, ok := n.Normalize("   ")
			So(ok, ShouldBeFalse)
		})

		Convey("Then oversized input is rejected", func() {
			_, ok := n.Normalize(strings.Repeat("a", 200))
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a normalizer with case folding disabled", t, func() {
		n := address.New(address.WithLowercase(false))

		Convey("Then the original casing is preserved", func() {
			addr, ok := n.Normalize("0xAbCd")
			So(ok, ShouldBeTrue)
			So(addr, ShouldEqual, "0xAbCd")
		})
	})

	Convey("Given a normalizer with the length check disabled", t, func() {
		n := address.New(address.WithMaxLength(0))

		Convey("Then long input passes through", func() {
			_, ok := n.Normalize(strings.Repeat("a", 500))
			So(ok, ShouldBeTrue)
		})
	})
}
