package utils_test

import (
	"fmt"
	"strings"

	"record-mapper/utils"
)

func ExampleUnpack3() {
	d, m, y := utils.Unpack3(strings.Split("03.11.2012", "."))
	fmt.Println(y, m, d)

	a, b, c := utils.Unpack3([]string{"only"})
	fmt.Printf("%q %q %q\n", a, b, c)

	fmt.Println(utils.IsInRange(1, 12, 12), utils.IsInRange(1, 13, 12))
	// Output:
	// 2012 11 03
	// "only" "" ""
	// true false
}
