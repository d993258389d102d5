// Package thimble is a dependency injection container for Go 1.25+.
//
// A container maps contracts, a type plus an optional name, to recipes for
// building values. Values are built on demand, cached according to their
// lifetime and disposed with the container that owns them. Containers form
// a tree: a child sees the registrations of its ancestors and may shadow
// them, while its own registrations stay invisible to the parent.
//
// # Quick Start
//
//	c := thimble.New()
//	c.Catalog().MustAddConstructor(NewServer)
//
//	thimble.RegisterInstance(c, &Config{Port: 8080})
//	thimble.RegisterType[Handler, *Server](c, thimble.AsSingleton())
//
//	h, err := thimble.Resolve[Handler](c)
//
// # Registrations
//
// A registration is one of:
//
//	thimble.RegisterType[From, To](c)           // build To whenever From is requested
//	thimble.RegisterInstance[T](c, value)       // return an existing value
//	thimble.RegisterFactory[T](c, factory)      // call a function
//	c.RegisterGeneric(openFrom, openTo)         // map a generic definition
//
// Registering the same type and name again in the same container replaces
// the previous registration.
//
// # Construction
//
// Types are described by the catalog. A struct type with no constructor in
// the catalog is built from its zero value. When several constructors are
// known, the one whose parameters can best be resolved is used:
//
//	c.Catalog().MustAddConstructor(NewUserService)
//	c.Catalog().MustAddConstructor(NewUserServiceWithCache, "db", "cache=redis,optional")
//
// After construction, tagged fields, properties and methods are injected:
//
//	type UserService struct {
//	    DB    *Database `thimble:""`           // inject by type
//	    Log   *Logger   `thimble:"audit"`      // inject by name
//	    Cache Cache     `thimble:",optional"`  // zero value when missing
//	}
//
// Registrations may override all of this with injection members:
//
//	thimble.RegisterType[Service, *UserService](c, thimble.WithInjection(
//	    thimble.InjectionConstructor(NewUserService, thimble.Value(db)),
//	    thimble.InjectionMethod("Init", thimble.ResolvedAs[*Logger]("audit")),
//	))
//
// # Lifetimes
//
//	thimble.AsTransient()     // a new value for every resolve (default)
//	thimble.AsSingleton()     // one value for the registering container and its children
//	thimble.AsHierarchical()  // one value per resolving container
//	thimble.AsPerThread()     // one value per goroutine
//	thimble.AsPerResolve()    // one value per top-level resolve
//
// # Collections and generics
//
// Requesting []T returns every named registration of T. iter.Seq[T] also
// includes the unnamed one. Open generic registrations are closed the first
// time a matching instantiation is requested:
//
//	repo := cat.Generic("Repo", 1)
//	memRepo := cat.Generic("MemRepo", 1)
//	introspect.MustBind[Repo[int]](repo, intType)
//	introspect.MustBind[*MemRepo[int]](memRepo, intType)
//	c.RegisterGeneric(repo, memRepo)
//
// # Overrides
//
// Overrides replace dependencies for the duration of one resolve:
//
//	svc, err := thimble.Resolve[*Service](c,
//	    thimble.ParameterOverride("timeout", 5*time.Second),
//	    thimble.DependencyOverrideFor[Clock](fakeClock).OnType(serviceType),
//	)
//
// # Errors
//
// Every failure is an *Error carrying a code, the requested contract and
// the chain of contracts being built:
//
//	if thimble.IsCircularDependency(err) { ... }
//	if errors.Is(err, thimble.ErrResolutionFailed) { ... }
//
// # Configuration
//
// Container settings can be loaded from a file and the environment:
//
//	s, err := config.Load(config.WithFile("thimble.yaml"))
//	c := thimble.New(thimble.WithSettings(s))
package thimble
