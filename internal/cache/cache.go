package cache

type Cache interface {
	Get(key interface{}) (interface{}, bool)
	Add(key, value interface{})
	Delete(key interface{})
	Keys() []interface{}
}
