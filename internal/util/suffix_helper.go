package util

import "fmt"

// ReferralsCount renders "1 реферал", "3 реферала", "11 рефералов".
func ReferralsCount(n int) string {
	return fmt.Sprintf("%d %s", n, suffix(n, "рефералов", "реферала", "реферал"))
}

func suffix(num int, many, few, one string) string {
	if num < 0 {
		num = -num
	}
	if n := num % 100; n >= 11 && n <= 14 {
		return many
	}
	switch num % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	}
	return many
}
