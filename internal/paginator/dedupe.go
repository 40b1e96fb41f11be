package paginator

// DedupeBy удаляет дубликаты с сохранением порядка первого появления.
// key возвращает ключ элемента и false, если ключа нет: такие элементы
// сохраняются все.
func DedupeBy[T any, K comparable](items []T, key func(T) (K, bool)) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k, ok := key(item)
		if ok {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}
