package service

// intersectionSize 计算两个符号集合的交集大小。
func intersectionSize(a, b map[string]struct{}) int {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	n := 0
	for sym := range small {
		if _, ok := large[sym]; ok {
			n++
		}
	}
	return n
}

// similarityJaccard 计算 Jaccard 系数: |A∩B| / |A∪B|。
// 两个集合都为空（并集为零）时返回 0，与 overlap 的空集约定一致。
func similarityJaccard(a, b map[string]struct{}) float64 {
	intersect := intersectionSize(a, b)
	union := len(a) + len(b) - intersect
	if union == 0 {
		return 0
	}
	return float64(intersect) / float64(union)
}

// similarityOverlap 计算 Szymkiewicz–Simpson（overlap）系数:
// |A∩B| / min(|A|,|B|)，任一集合为空时定义为 0。
func similarityOverlap(a, b map[string]struct{}) float64 {
	minimum := len(a)
	if len(b) < minimum {
		minimum = len(b)
	}
	if minimum == 0 {
		return 0
	}
	return float64(intersectionSize(a, b)) / float64(minimum)
}
