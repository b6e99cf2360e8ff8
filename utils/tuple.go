package utils

func Unpack2[Slice ~[]T, T any](s Slice) (first T, second T) {
	switch len(s) {
	default:
		return s[0], s[1]
	case 0:
		return
	case 1:
		first = s[0]
		return
	}
}

func Unpack3[Slice ~[]T, T any](s Slice) (first T, second T, third T) {
	if len(s) >= 3 {
		return s[0], s[1], s[2]
	}

	first, second = Unpack2(s)

	return
}
