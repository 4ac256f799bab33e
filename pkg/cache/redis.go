// Пакет cache предоставляет обёртку для работы с Redis как кешем
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss возвращается, когда запрошенный ключ отсутствует в кеше Redis.
var ErrCacheMiss = errors.New("cache miss")

// setIfGenerationScript записывает значение, только если поколение ключа не менялось
// с момента чтения. KEYS[1] ключ поколения, KEYS[2] ключ значения.
const setIfGenerationScript = `
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[2], ARGV[2])
end
return 1
`

// RedisClient: обёртка над *redis.Client с пространством имён ключей.
// Все ключи хранятся с префиксом namespace, чтобы не пересекаться с другими сервисами.
// У каждого ключа есть счётчик поколения key:gen, который растёт при инвалидации.
type RedisClient struct {
	client    *redis.Client
	namespace string
}

// NewRedisClient оборачивает уже созданный клиент; namespace добавляется к каждому ключу
func NewRedisClient(client *redis.Client, namespace string) *RedisClient {
	return &RedisClient{client: client, namespace: namespace}
}

func (r *RedisClient) key(k string) string {
	if r.namespace == "" {
		return k
	}
	return r.namespace + ":" + k
}

func (r *RedisClient) genKey(k string) string {
	return r.key(k) + ":gen"
}

// Generation возвращает текущее поколение ключа; для нового ключа это 0
func (r *RedisClient) Generation(ctx context.Context, key string) (int64, error) {
	gen, err := r.client.Get(ctx, r.genKey(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// SetIfGeneration сохраняет value, если поколение ключа всё ещё равно gen.
// false означает, что ключ был инвалидирован после чтения поколения и значение устарело.
func (r *RedisClient) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, expiration time.Duration) (bool, error) {
	stored, err := r.client.Eval(ctx, setIfGenerationScript,
		[]string{r.genKey(key), r.key(key)},
		strconv.FormatInt(gen, 10), value, expiration.Milliseconds(),
	).Int64()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Get возвращает значение по ключу или ErrCacheMiss, если ключа нет
func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Invalidate увеличивает поколение ключа и удаляет его значение.
// Поколение растёт первым: запись, начатая до инвалидации, уже не пройдёт.
func (r *RedisClient) Invalidate(ctx context.Context, key string) error {
	if err := r.client.Incr(ctx, r.genKey(key)).Err(); err != nil {
		return err
	}
	return r.client.Del(ctx, r.key(key)).Err()
}

// Ping проверяет соединение с Redis для /readyz
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
