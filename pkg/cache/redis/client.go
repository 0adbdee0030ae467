/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package redis

import (
	"time"

	"github.com/go-redis/redis"
)

func durationMS(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (c *CacheClient) clientOpts() *redis.Options {
	r := c.Config.Redis
	o := &redis.Options{
		Network:         r.Protocol,
		Addr:            r.Endpoint,
		Password:        r.Password,
		DB:              r.DB,
		MaxRetries:      r.MaxRetries,
		MinRetryBackoff: durationMS(r.MinRetryBackoffMS),
		MaxRetryBackoff: durationMS(r.MaxRetryBackoffMS),
		DialTimeout:     durationMS(r.DialTimeoutMS),
		ReadTimeout:     durationMS(r.ReadTimeoutMS),
		WriteTimeout:    durationMS(r.WriteTimeoutMS),
		PoolSize:        r.PoolSize,
		MinIdleConns:    r.MinIdleConns,
		MaxConnAge:      durationMS(r.MaxConnAgeMS),
		PoolTimeout:     durationMS(r.PoolTimeoutMS),
		IdleTimeout:     durationMS(r.IdleTimeoutMS),
	}
	return o
}

func (c *CacheClient) sentinelOpts() *redis.FailoverOptions {
	r := c.Config.Redis
	o := &redis.FailoverOptions{
		MasterName:      r.SentinelMaster,
		SentinelAddrs:   r.Endpoints,
		Password:        r.Password,
		DB:              r.DB,
		MaxRetries:      r.MaxRetries,
		MinRetryBackoff: durationMS(r.MinRetryBackoffMS),
		MaxRetryBackoff: durationMS(r.MaxRetryBackoffMS),
		DialTimeout:     durationMS(r.DialTimeoutMS),
		ReadTimeout:     durationMS(r.ReadTimeoutMS),
		WriteTimeout:    durationMS(r.WriteTimeoutMS),
		PoolSize:        r.PoolSize,
		MinIdleConns:    r.MinIdleConns,
		MaxConnAge:      durationMS(r.MaxConnAgeMS),
		PoolTimeout:     durationMS(r.PoolTimeoutMS),
		IdleTimeout:     durationMS(r.IdleTimeoutMS),
	}
	return o
}

func (c *CacheClient) clusterOpts() *redis.ClusterOptions {
	r := c.Config.Redis
	o := &redis.ClusterOptions{
		Addrs:           r.Endpoints,
		Password:        r.Password,
		MaxRetries:      r.MaxRetries,
		MinRetryBackoff: durationMS(r.MinRetryBackoffMS),
		MaxRetryBackoff: durationMS(r.MaxRetryBackoffMS),
		DialTimeout:     durationMS(r.DialTimeoutMS),
		ReadTimeout:     durationMS(r.ReadTimeoutMS),
		WriteTimeout:    durationMS(r.WriteTimeoutMS),
		PoolSize:        r.PoolSize,
		MinIdleConns:    r.MinIdleConns,
		MaxConnAge:      durationMS(r.MaxConnAgeMS),
		PoolTimeout:     durationMS(r.PoolTimeoutMS),
		IdleTimeout:     durationMS(r.IdleTimeoutMS),
	}
	return o
}
