package mock

type ContentStore struct {
	PutFn func(key string, content []byte) (string, error)

	GetFn func(key string) ([]byte, error)

	DeleteFn func(key string) error
}

func (s ContentStore) Put(key string, content []byte) (string, error) {
	return s.PutFn(key, content)
}

func (s ContentStore) Get(key string) ([]byte, error) {
	return s.GetFn(key)
}

func (s ContentStore) Delete(key string) error {
	return s.DeleteFn(key)
}
