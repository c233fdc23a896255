package filestore

// FakeImageStore is a test double recording deletions. Prefix plays the
// CDN prefix role so KeyFromUrl behaves like the real store.
type FakeImageStore struct {
	Prefix  string
	Deleted []string
	Err     error
}

func (f *FakeImageStore) GetUrlFromKey(key string) string {
	return f.Prefix + key
}

func (f *FakeImageStore) KeyFromUrl(url string) (string, bool) {
	if f.Prefix == "" || len(url) <= len(f.Prefix) || url[:len(f.Prefix)] != f.Prefix {
		return "", false
	}
	return url[len(f.Prefix):], true
}

func (f *FakeImageStore) DeleteKeys(keys []string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Deleted = append(f.Deleted, keys...)
	return nil
}
