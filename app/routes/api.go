package routes

import (
	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/pkg/ctx"
	"github.com/shashiranjanraj/storefront/pkg/rbac"
	"github.com/shashiranjanraj/storefront/pkg/router"
)

// Controllers are the handlers mounted by RegisterAPI.
type Controllers struct {
	Auth     *controllers.AuthController
	Product  *controllers.ProductController
	Cart     *controllers.CartController
	Checkout *controllers.CheckoutController
	Order    *controllers.OrderController
	Upload   *controllers.UploadController
	Admin    *controllers.AdminController
}

// RegisterAPI mounts the /api routes. authn verifies the bearer token.
func RegisterAPI(r *router.Router, c Controllers, authn router.Middleware) {
	api := r.Group("/api")

	api.Post("/auth/register", "auth.register", ctx.Wrap(c.Auth.Register))
	api.Post("/auth/login", "auth.login", ctx.Wrap(c.Auth.Login))

	api.Get("/products", "products.index", ctx.Wrap(c.Product.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(c.Product.Show))
	api.Get("/products/seller/{id}", "products.seller", ctx.Wrap(c.Product.BySeller))

	user := api.Group("", authn)

	user.Get("/profile", "profile.show", ctx.Wrap(c.Auth.Profile))
	user.Put("/profile", "profile.update", ctx.Wrap(c.Auth.UpdateProfile))

	user.Get("/cart", "cart.index", ctx.Wrap(c.Cart.Index))
	user.Post("/cart", "cart.add", ctx.Wrap(c.Cart.Add))
	user.Delete("/cart", "cart.clear", ctx.Wrap(c.Cart.Clear))
	user.Delete("/cart/{id}", "cart.remove", ctx.Wrap(c.Cart.Remove))

	user.Post("/create-payment-intent", "checkout.intent", ctx.Wrap(c.Checkout.CreateIntent))
	user.Post("/checkout/cart", "checkout.cart", ctx.Wrap(c.Checkout.CheckoutCart))
	user.Post("/update-order", "checkout.confirm", ctx.Wrap(c.Checkout.UpdateOrder))

	user.Get("/orders", "orders.index", ctx.Wrap(c.Order.Index))
	user.Get("/orders/ws", "orders.ws", ctx.Wrap(c.Order.Stream))
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Order.Show))

	seller := user.Group("", rbac.Seller())
	seller.Post("/products", "products.store", ctx.Wrap(c.Product.Store))
	seller.Put("/products/{id}", "products.update", ctx.Wrap(c.Product.Update))
	seller.Delete("/products/{id}", "products.destroy", ctx.Wrap(c.Product.Destroy))
	seller.Post("/upload", "upload.store", ctx.Wrap(c.Upload.Store))

	admin := user.Group("/admin", rbac.Admin())
	admin.Get("/users", "admin.users", ctx.Wrap(c.Admin.Users))
	admin.Delete("/users/{id}", "admin.users.destroy", ctx.Wrap(c.Admin.DeleteUser))
}
