package thimble_test

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/danpasecinic/thimble"
)

func BenchmarkResolve_Compiled_Transient(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineCompiled, thimble.AsTransient())
}

func BenchmarkResolve_Interpreted_Transient(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineInterpreted, thimble.AsTransient())
}

func BenchmarkResolve_Compiled_Singleton(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineCompiled, thimble.AsSingleton())
}

func BenchmarkResolve_Interpreted_Singleton(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineInterpreted, thimble.AsSingleton())
}

func BenchmarkResolve_Compiled_PerThread(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineCompiled, thimble.AsPerThread())
}

func BenchmarkResolve_Compiled_Hierarchical(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineCompiled, thimble.AsHierarchical())
}

func BenchmarkResolve_Optimized_Transient(b *testing.B) {
	benchmarkResolve(b, thimble.PipelineCompiled, thimble.AsTransient(), thimble.WithMode(thimble.ModeOptimized))
}

func BenchmarkResolveChain_Compiled_5(b *testing.B) {
	benchmarkChain(b, thimble.PipelineCompiled, 5)
}

func BenchmarkResolveChain_Interpreted_5(b *testing.B) {
	benchmarkChain(b, thimble.PipelineInterpreted, 5)
}

func BenchmarkResolveChain_Compiled_Injected(b *testing.B) {
	benchmarkInjected(b, thimble.PipelineCompiled)
}

func BenchmarkResolveChain_Interpreted_Injected(b *testing.B) {
	benchmarkInjected(b, thimble.PipelineInterpreted)
}

func BenchmarkResolveAll_10(b *testing.B) {
	benchmarkResolveAll(b, 10)
}

func BenchmarkResolveAll_100(b *testing.B) {
	benchmarkResolveAll(b, 100)
}

func BenchmarkResolveParallel_Singleton(b *testing.B) {
	c := thimble.New()
	thimble.MustRegister[*Config](c, thimble.AsSingleton())

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := thimble.Resolve[*Config](c); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkResolveWithOverride(b *testing.B) {
	c := thimble.New()
	c.Catalog().MustAddConstructor(NewClient, "timeout")
	thimble.MustRegisterInstance(c, &Config{})
	override := thimble.ParameterOverride("timeout", time.Second)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := thimble.Resolve[*Client](c, override); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRegister_10(b *testing.B) {
	benchmarkRegister(b, 10)
}

func BenchmarkRegister_100(b *testing.B) {
	benchmarkRegister(b, 100)
}

func BenchmarkChildContainer(b *testing.B) {
	c := thimble.New()
	thimble.MustRegister[*Config](c, thimble.AsHierarchical())

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		child := c.CreateChildContainer("request")
		if _, err := thimble.Resolve[*Config](child); err != nil {
			b.Fatal(err)
		}
		child.Dispose()
	}
}

func BenchmarkDispose_10(b *testing.B) {
	benchmarkDispose(b, 10)
}

func BenchmarkDispose_100(b *testing.B) {
	benchmarkDispose(b, 100)
}

func benchmarkResolve(b *testing.B, pipeline thimble.PipelineKind, scope thimble.RegisterOption, opts ...thimble.Option) {
	opts = append(opts, thimble.WithPipeline(pipeline))
	c := thimble.New(opts...)
	c.Catalog().MustAddConstructor(NewDatabase)
	thimble.MustRegisterInstance(c, &Config{})
	thimble.MustRegister[*Database](c, scope)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := thimble.Resolve[*Database](c); err != nil {
			b.Fatal(err)
		}
	}
}

type chainLink struct {
	next *chainLink
}

func benchmarkChain(b *testing.B, pipeline thimble.PipelineKind, depth int) {
	c := thimble.New(thimble.WithPipeline(pipeline))
	for i := range depth {
		name := strconv.Itoa(i)
		var next thimble.Param
		if i+1 < depth {
			next = thimble.ResolvedAs[*chainLink](strconv.Itoa(i + 1))
		} else {
			next = thimble.Value((*chainLink)(nil))
		}
		thimble.MustRegister[*chainLink](c,
			thimble.WithName(name),
			thimble.WithInjection(thimble.InjectionConstructor(
				func(n *chainLink) *chainLink { return &chainLink{next: n} },
				next,
			)),
		)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := thimble.ResolveNamed[*chainLink](c, "0"); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkInjected(b *testing.B, pipeline thimble.PipelineKind) {
	c := thimble.New(thimble.WithPipeline(pipeline))
	c.Catalog().MustAddConstructor(NewDatabase)
	thimble.MustRegisterInstance(c, &Config{})
	thimble.MustRegister[*Service](c, thimble.WithInjection(
		thimble.InjectionProperty("Name", thimble.Value("bench")),
		thimble.InjectionMethod("Init"),
	))

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := thimble.Resolve[*Service](c); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkResolveAll(b *testing.B, n int) {
	c := thimble.New()
	for i := range n {
		thimble.MustRegisterInstance(c, i, thimble.WithName(strconv.Itoa(i)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		values, err := thimble.ResolveAll[int](c)
		if err != nil {
			b.Fatal(err)
		}
		if len(values) != n {
			b.Fatalf("expected %d values, got %d", n, len(values))
		}
	}
}

func benchmarkRegister(b *testing.B, n int) {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("config-%d", i)
	}
	configType := reflect.TypeFor[*Config]()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		c := thimble.New()
		for _, name := range names {
			if err := c.RegisterType(configType, nil, thimble.WithName(name)); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func benchmarkDispose(b *testing.B, n int) {
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		c := thimble.New()
		for range n {
			c.OnDispose(func() error { return nil })
		}
		b.StartTimer()

		if err := c.CloseCtx(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
