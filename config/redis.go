package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is nil when REDIS_URL is not set; callers must treat the cache as optional.
var Redis *redis.Client

func InitRedis() {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		log.Println("REDIS_URL not set, tracking summary cache disabled")
		return
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("Warning: invalid REDIS_URL: %v", err)
		return
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: redis unreachable, cache disabled: %v", err)
		_ = client.Close()
		return
	}

	Redis = client
	log.Println("Redis connected successfully")
}
